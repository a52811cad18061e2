package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/okena-dev/okena/internal/tui/components"
	"github.com/okena-dev/okena/internal/workspace"
)

func (m model) View() string {
	var b strings.Builder

	b.WriteString(components.HeaderStyle.Render("okena — workspace status"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(components.ErrorStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n\n")
	}

	status := components.StatusCrashedStyle.Render("● disconnected")
	if m.connected {
		status = components.StatusRunningStyle.Render("● connected")
	}
	b.WriteString(fmt.Sprintf("%s  last update: %s\n\n", status, m.lastUpdate.Format("15:04:05")))

	for _, pid := range m.snapshot.State.ProjectOrder {
		p, ok := m.snapshot.State.Projects[pid]
		if !ok {
			continue
		}
		b.WriteString(renderProject(p, m.snapshot.Services[pid]))
		b.WriteString("\n")
	}

	b.WriteString(components.FooterStyle.Render("q: quit   r: refresh"))
	return b.String()
}

func renderProject(p *workspace.Project, services []ServiceStatus) string {
	var b strings.Builder

	name := p.Name
	if m := p.Layout; m != nil && m.Minimized {
		name += " (minimized)"
	}
	b.WriteString(components.SectionHeaderStyle.Render(name))
	b.WriteString("\n")
	b.WriteString(components.MutedStyle.Render(fmt.Sprintf("  %s", p.Path)))
	b.WriteString("\n")

	terminals := layoutTerminalIDs(p.Layout)
	b.WriteString(fmt.Sprintf("  terminals: %d\n", len(terminals)))

	if len(services) > 0 {
		b.WriteString(components.SubHeaderStyle.Render("  services"))
		b.WriteString("\n")
		for _, svc := range services {
			b.WriteString(fmt.Sprintf("    %s  %s", svc.Name, styleServiceState(svc.State)))
			if len(svc.Ports) > 0 {
				b.WriteString(fmt.Sprintf("  ports=%v", svc.Ports))
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

func styleServiceState(state string) string {
	switch state {
	case "running":
		return components.StatusRunningStyle.Render(state)
	case "crashed":
		return components.StatusCrashedStyle.Render(state)
	case "starting", "restarting":
		return components.StatusTransitioningStyle.Render(state)
	default:
		return lipgloss.NewStyle().Render(state)
	}
}

// layoutTerminalIDs walks a layout tree collecting every leaf's terminal
// id, the same small helper internal/remote/client.go uses against the
// same wire snapshot shape.
func layoutTerminalIDs(node *workspace.Layout) []string {
	if node == nil {
		return nil
	}
	if node.Kind == workspace.KindTerminal {
		if node.TerminalID != nil {
			return []string{*node.TerminalID}
		}
		return nil
	}
	var ids []string
	for _, child := range node.Children {
		ids = append(ids, layoutTerminalIDs(child)...)
	}
	return ids
}
