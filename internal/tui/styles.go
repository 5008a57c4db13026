package tui

import styles "github.com/charmbracelet/lipgloss"

var (
	colorTitle  = styles.Color("#facc15")
	colorBorder = styles.Color("#3b4261")
	colorFg     = styles.Color("#c0caf5")
	colorDim    = styles.Color("#565f89")
	colorGain   = styles.Color("#22c55e")
	colorLoss   = styles.Color("#ef4444")
	colorError  = styles.Color("#f7768e")

	titleStyle = styles.NewStyle().Foreground(colorTitle).Bold(true)
	dimStyle   = styles.NewStyle().Foreground(colorDim)
	fgStyle    = styles.NewStyle().Foreground(colorFg)
	gainStyle  = styles.NewStyle().Foreground(colorGain)
	lossStyle  = styles.NewStyle().Foreground(colorLoss)
	errStyle   = styles.NewStyle().Foreground(colorError)

	panelStyle = styles.NewStyle().
			BorderStyle(styles.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	cardStyle = styles.NewStyle().
			BorderStyle(styles.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Width(cardWidth)
)

func signed(v int) string {
	s := fgStyle
	switch {
	case v > 0:
		s = gainStyle
	case v < 0:
		s = lossStyle
	}
	if v > 0 {
		return s.Render("+" + itoa(v))
	}
	return s.Render(itoa(v))
}
