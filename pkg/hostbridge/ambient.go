package hostbridge

// Ambient combines EnvService and WindowService into the single set of
// methods pkg/transport/ws.AmbientRegistry expects, since both ride the
// same websocket tool channel (see DESIGN.md).
type Ambient struct {
	*EnvService
	*WindowService
}

func NewAmbient(env *EnvService, window *WindowService) Ambient {
	return Ambient{EnvService: env, WindowService: window}
}
