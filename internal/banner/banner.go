package banner

import (
	"revbench/internal/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
                     __                    __
   ________ _   __  / /_  ___  ____  _____/ /_
  / ___/ _ \ | / / / __ \/ _ \/ __ \/ ___/ __ \
 / /  /  __/ |/ / / /_/ /  __/ / / / /__/ / / /
/_/   \___/|___/ /_.___/\___/_/ /_/\___/_/ /_/ `

	return "\n" + style.Render(ascii) + "\n"
}
