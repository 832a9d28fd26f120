package authserver

import (
	"html/template"
	"net/http"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>VaultKey</title>
  <style>
    body { font-family: system-ui, sans-serif; max-width: 30rem; margin: 4rem auto; }
    button { font-size: 1rem; padding: 0.6rem 1.4rem; }
    #status { margin-top: 1rem; color: #555; }
  </style>
</head>
<body>
  <h1>VaultKey</h1>
  <p>{{if eq .Mode "register"}}Register a passkey{{else}}Sign in with your passkey{{end}} for <strong>{{.UserID}}</strong>.</p>
  <button id="go">{{if eq .Mode "register"}}Register passkey{{else}}Sign in{{end}}</button>
  <p id="status"></p>
  <script>
    const mode = {{.Mode}};

    function b64urlToBuf(s) {
      s = s.replace(/-/g, "+").replace(/_/g, "/");
      const pad = s.length % 4 ? "=".repeat(4 - (s.length % 4)) : "";
      const bin = atob(s + pad);
      return Uint8Array.from(bin, c => c.charCodeAt(0)).buffer;
    }
    function bufToB64url(buf) {
      const bin = String.fromCharCode(...new Uint8Array(buf));
      return btoa(bin).replace(/\+/g, "-").replace(/\//g, "_").replace(/=+$/, "");
    }

    async function run() {
      const status = document.getElementById("status");
      status.textContent = "Waiting for authenticator...";
      try {
        const optsResp = await fetch("/api/" + mode + "/options");
        if (!optsResp.ok) throw new Error((await optsResp.json()).error);
        const opts = (await optsResp.json()).publicKey;

        opts.challenge = b64urlToBuf(opts.challenge);
        if (opts.user) opts.user.id = b64urlToBuf(opts.user.id);
        for (const list of [opts.excludeCredentials, opts.allowCredentials]) {
          if (list) list.forEach(c => { c.id = b64urlToBuf(c.id); });
        }

        let body;
        if (mode === "register") {
          const cred = await navigator.credentials.create({ publicKey: opts });
          body = {
            id: cred.id,
            rawId: bufToB64url(cred.rawId),
            type: cred.type,
            response: {
              attestationObject: bufToB64url(cred.response.attestationObject),
              clientDataJSON: bufToB64url(cred.response.clientDataJSON),
            },
          };
        } else {
          const cred = await navigator.credentials.get({ publicKey: opts });
          body = {
            id: cred.id,
            rawId: bufToB64url(cred.rawId),
            type: cred.type,
            response: {
              authenticatorData: bufToB64url(cred.response.authenticatorData),
              clientDataJSON: bufToB64url(cred.response.clientDataJSON),
              signature: bufToB64url(cred.response.signature),
              userHandle: cred.response.userHandle ? bufToB64url(cred.response.userHandle) : null,
            },
          };
        }

        const verifyResp = await fetch("/api/" + mode + "/verify", {
          method: "POST",
          headers: { "Content-Type": "application/json" },
          body: JSON.stringify(body),
        });
        if (!verifyResp.ok) throw new Error((await verifyResp.json()).error);
        window.location = "/success";
      } catch (err) {
        status.textContent = "Failed: " + err.message;
      }
    }
    document.getElementById("go").addEventListener("click", run);
  </script>
</body>
</html>
`))

const successPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>VaultKey</title>
  <style>body { font-family: system-ui, sans-serif; max-width: 30rem; margin: 4rem auto; }</style>
</head>
<body>
  <h1>Done</h1>
  <p>You can close this tab and return to the terminal.</p>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = indexTemplate.Execute(w, struct {
		UserID string
		Mode   string
	}{UserID: s.userID, Mode: string(s.mode)})
}

func (s *Server) handleSuccess(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(successPage))
}
