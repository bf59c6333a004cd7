package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/trueque/internal/tui/ui"
	"github.com/rivo/tview"
	qrcode "github.com/skip2/go-qrcode"
)

// AuthView shows the login URL as a QR code and as text.
type AuthView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewAuthView creates a new auth view.
func NewAuthView(theme *ui.Theme) *AuthView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Login Required ")
	tv.SetTitleColor(theme.TitleColor)

	return &AuthView{TextView: tv, theme: theme}
}

// Name implements ui.Component.
func (av *AuthView) Name() string { return "Login" }

// Start implements ui.Component.
func (av *AuthView) Start() {}

// Stop implements ui.Component.
func (av *AuthView) Stop() {}

// Hints implements ui.Component.
func (av *AuthView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: ":token <id_token>", Description: "Complete login"},
		{Key: "q", Description: "Quit"},
	}
}

// ShowLogin renders the login URL.
func (av *AuthView) ShowLogin(loginURL string) {
	av.Clear()
	_, _ = fmt.Fprintf(av,
		"\n  Open this page to log in, or scan it with your phone:\n\n%s\n  [%s]%s[-]\n\n"+
			"  [::d]Then paste the returned ID token with :token <id_token>[-:-:-]",
		renderQR(loginURL), ui.Tag(av.theme.MenuKeyColor), tview.Escape(loginURL))
}

// ShowMessage displays a status message.
func (av *AuthView) ShowMessage(msg string) {
	av.Clear()
	_, _ = fmt.Fprintf(av, "\n\n%s", tview.Escape(msg))
}

// renderQR converts a string to a compact QR code using Unicode half-block
// characters, two modules per terminal row.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")"
	}

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		sb.WriteString("  ")
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := y+1 < rows && bitmap[y+1][x]
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
