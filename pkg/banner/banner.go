// Package banner renders the hostbridge startup banner, trimmed from the
// teacher's pkg/cli/display.RenderSessionBanner (which prints a chat
// session's version/provider/model/workdir) down to what this process
// announces on startup: its version, ports, diff layout and session token.
package banner

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Info is what the startup banner shows.
type Info struct {
	Version       string
	WebSocketPort int
	GRPCPort      int
	SessionToken  string
	Layout        string
}

func Render(info Info) string {
	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Bold(true)

	dimStyle := lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "248", Dark: "238"})

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("39")).
		Padding(1, 4)

	versionStr := info.Version
	if len(versionStr) > 0 && versionStr[0] >= '0' && versionStr[0] <= '9' {
		versionStr = "v" + versionStr
	}

	lines := []string{
		titleStyle.Render("hostbridge") + " " + dimStyle.Render(versionStr),
		dimStyle.Render(fmt.Sprintf("tools ws :%d · grpc :%d", info.WebSocketPort, info.GRPCPort)),
		dimStyle.Render("layout " + info.Layout),
		dimStyle.Render("session " + shortToken(info.SessionToken)),
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func shortToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
