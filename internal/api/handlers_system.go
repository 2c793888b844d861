package api

import "net/http"

func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.info)
}

// loginPage renders a simple login HTML page, kept from the teacher's
// cookie-based auth flow.
func (h *Handlers) loginPage(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if next == "" {
		next = "/api"
	}
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>audiolox Login</title></head>
<body>
<h2>audiolox Login</h2>
<form method="POST" action="/auth/login">
  <input type="hidden" name="next" value="` + next + `">
  <label>Password: <input type="password" name="password"></label>
  <button type="submit">Login</button>
</form>
</body>
</html>`))
}

// loginPost handles login form submission; the auth middleware performs
// actual credential verification on subsequent requests.
func (h *Handlers) loginPost(w http.ResponseWriter, r *http.Request) {
	next := r.FormValue("next")
	if next == "" {
		next = "/api"
	}
	http.Redirect(w, r, next, http.StatusFound)
}
