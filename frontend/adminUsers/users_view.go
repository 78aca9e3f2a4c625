package adminusers

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

func UsersList(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section><h1>Users</h1>`); err != nil {
			return err
		}
		if data.Status != "" {
			if _, err := fmt.Fprintf(w, `<p class="status">%s</p>`, templ.EscapeString(data.Status)); err != nil {
				return err
			}
		}
		if data.ErrorMessage != "" {
			if _, err := fmt.Fprintf(w, `<p class="error" role="alert">%s</p>`, templ.EscapeString(data.ErrorMessage)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<table><thead><tr><th>Username</th><th>Role</th><th></th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, u := range data.Users {
			if _, err := fmt.Fprintf(w, `<tr><td>%s</td><td>%s</td><td><form method="post" action="/cellar/admin/users/%d/role">%s<button type="submit">Change</button></form></td></tr>`,
				templ.EscapeString(u.Username), templ.EscapeString(u.Role), u.ID, roleSelect(data.Roles, u.Role)); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, `</tbody></table><h2>New user</h2><form method="post" action="/cellar/admin/users">`+
			`<label>Username <input name="username" required></label>`+
			`<label>Password <input name="password" type="password" required></label>`+
			`<label>Role %s</label><button type="submit">Create</button></form></section>`, roleSelect(data.Roles, "viewer"))
		return err
	})
}

func roleSelect(roles []string, selected string) string {
	out := `<select name="role">`
	for _, r := range roles {
		sel := ""
		if r == selected {
			sel = " selected"
		}
		out += fmt.Sprintf(`<option value="%s"%s>%s</option>`, r, sel, r)
	}
	return out + `</select>`
}
