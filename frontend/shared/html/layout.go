// Package html renders the server-side page shell.
package html

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"cellarbook/frontend/shared/nav"
)

// Layout wraps body in the document shell. A zero nav renders no header.
func Layout(title string, top nav.TopNavData, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!doctype html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>%s · Cellarbook</title><link rel="stylesheet" href="/assets/app.css"></head><body>`, templ.EscapeString(title)); err != nil {
			return err
		}
		if top.Username != "" {
			if err := topNav(top).Render(ctx, w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<main>`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</main>`); err != nil {
			return err
		}
		if err := CSRFScript().Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

func topNav(top nav.TopNavData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<header class="topnav"><nav>`); err != nil {
			return err
		}
		for _, l := range top.Links {
			if _, err := fmt.Fprintf(w, `<a href="%s">%s</a>`, templ.EscapeString(l.Href), templ.EscapeString(l.Label)); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, `</nav><form method="post" action="/logout" class="logout"><span>%s (%s)</span><button type="submit">Log out</button></form></header>`,
			templ.EscapeString(top.Username), templ.EscapeString(top.Role))
		return err
	})
}

// CSRFScript copies the CSRF cookie into POST forms and fetch calls.
func CSRFScript() templ.Component {
	return templ.Raw(`<script>
(function () {
  function token() {
    var m = document.cookie.match(/(?:^|;\s*)X-CSRF-Token=([^;]*)/);
    return m ? decodeURIComponent(m[1]) : "";
  }
  document.addEventListener("submit", function (e) {
    var form = e.target;
    if ((form.method || "").toUpperCase() !== "POST" || form.querySelector("input[name='_csrf']")) return;
    var input = document.createElement("input");
    input.type = "hidden";
    input.name = "_csrf";
    input.value = token();
    form.appendChild(input);
  }, true);
  var fetch0 = window.fetch;
  window.fetch = function (url, opts) {
    opts = opts || {};
    opts.headers = new Headers(opts.headers || {});
    if (!opts.headers.has("X-CSRF-Token")) opts.headers.set("X-CSRF-Token", token());
    return fetch0(url, opts);
  };
})();
</script>`)
}
