package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor          tcell.Color
	FgColor          tcell.Color
	BorderColor      tcell.Color
	BorderFocusColor tcell.Color
	TableHeaderFg    tcell.Color
	TableHeaderBg    tcell.Color
	TableCursorFg    tcell.Color
	TableCursorBg    tcell.Color
	CrumbActiveFg    tcell.Color
	CrumbActiveBg    tcell.Color
	CrumbInactiveFg  tcell.Color
	CrumbInactiveBg  tcell.Color
	MenuKeyColor     tcell.Color
	TitleColor       tcell.Color
	CounterColor     tcell.Color
	FlashInfoColor   tcell.Color
	FlashWarnColor   tcell.Color
	FlashErrColor    tcell.Color

	// Chat room.
	MineColor    tcell.Color
	TheirsColor  tcell.Color
	SystemColor  tcell.Color
	DayColor     tcell.Color
	UnreadColor  tcell.Color
	DealNone     tcell.Color
	DealPending  tcell.Color
	DealComplete tcell.Color
}

// DefaultTheme returns the dark teal theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:          tcell.ColorBlack,
		FgColor:          tcell.ColorSilver,
		BorderColor:      tcell.ColorTeal,
		BorderFocusColor: tcell.ColorMediumTurquoise,
		TableHeaderFg:    tcell.ColorWhite,
		TableHeaderBg:    tcell.ColorBlack,
		TableCursorFg:    tcell.ColorBlack,
		TableCursorBg:    tcell.ColorMediumTurquoise,
		CrumbActiveFg:    tcell.ColorBlack,
		CrumbActiveBg:    tcell.ColorOrange,
		CrumbInactiveFg:  tcell.ColorBlack,
		CrumbInactiveBg:  tcell.ColorTeal,
		MenuKeyColor:     tcell.ColorMediumTurquoise,
		TitleColor:       tcell.ColorAqua,
		CounterColor:     tcell.ColorPapayaWhip,
		FlashInfoColor:   tcell.ColorNavajoWhite,
		FlashWarnColor:   tcell.ColorOrange,
		FlashErrColor:    tcell.ColorOrangeRed,
		MineColor:        tcell.ColorMediumTurquoise,
		TheirsColor:      tcell.ColorWhite,
		SystemColor:      tcell.ColorGray,
		DayColor:         tcell.ColorDarkCyan,
		UnreadColor:      tcell.ColorLime,
		DealNone:         tcell.ColorGray,
		DealPending:      tcell.ColorGold,
		DealComplete:     tcell.ColorLime,
	}
}

// Tag returns the tview color tag name of c.
func Tag(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
