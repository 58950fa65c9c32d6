package handlers

import (
	"html/template"
	"io"

	"github.com/drborges/apollo-react-spike/internal/client"
)

var page = template.Must(template.New("users").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Users</title>
<style>
.item { cursor: pointer; list-style: none; padding: 4px 8px; }
.item button { all: unset; }
.blocked { color: #b00; text-decoration: line-through; }
.available { color: #070; }
</style>
</head>
<body>
<form method="post" action="/refresh"><button type="submit">Refresh</button></form>
<ul id="users">
{{- if eq .Status.Phase.String "loading"}}
<li>Loading...</li>
{{- else if eq .Status.Phase.String "error"}}
<li>Error :(</li>
{{- else}}
{{- range .Users}}
<li class="item {{if .Blocked}}blocked{{else}}available{{end}}" data-id="{{.ID}}">
<form method="post" action="/users/{{.ID}}/toggle"><button type="submit">{{.Name}} (#{{.ID}})</button></form>
</li>
{{- end}}
{{- end}}
</ul>
<script>
(function () {
  var list = document.getElementById("users");
  function render(view) {
    list.textContent = "";
    if (view.status !== "ready") {
      var li = document.createElement("li");
      li.textContent = view.status === "error" ? "Error :(" : "Loading...";
      list.appendChild(li);
      return;
    }
    view.users.forEach(function (user) {
      var li = document.createElement("li");
      li.className = "item " + (user.blocked ? "blocked" : "available");
      li.dataset.id = user.id;
      li.textContent = user.name + " (#" + user.id + ")";
      list.appendChild(li);
    });
  }
  list.addEventListener("click", function (e) {
    var li = e.target.closest("li[data-id]");
    if (!li) return;
    e.preventDefault();
    fetch("/users/" + li.dataset.id + "/toggle", { method: "POST", headers: { Accept: "application/json" } });
  });
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(scheme + location.host + "/live");
  ws.onmessage = function (msg) { render(JSON.parse(msg.data)); };
})();
</script>
</body>
</html>
`))

func renderPage(w io.Writer, view client.View) error {
	return page.Execute(w, view)
}
