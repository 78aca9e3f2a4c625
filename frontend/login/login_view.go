package login

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// LoginForm is the sign in card. errorMessage is shown above the fields when set.
func LoginForm(errorMessage string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section class="login"><h1>Cellarbook</h1>`); err != nil {
			return err
		}
		if errorMessage != "" {
			if _, err := fmt.Fprintf(w, `<p class="error" role="alert">%s</p>`, templ.EscapeString(errorMessage)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `<form method="post" action="/login">`+
			`<label>Username <input name="username" autocomplete="username" required></label>`+
			`<label>Password <input name="password" type="password" autocomplete="current-password" required></label>`+
			`<button type="submit">Sign in</button></form></section>`)
		return err
	})
}
