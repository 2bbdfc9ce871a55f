package serve

import (
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/xy-planning-network/relay/http/params"
	"github.com/xy-planning-network/relay/http/pattern"
	"github.com/xy-planning-network/relay/http/pipeline"
	"github.com/xy-planning-network/relay/http/reqres"
)

// StaticFiles serves files from fsys. Register it on a wildcard rule; the
// wildcard's capture names the file to serve:
//
//	srv.Get("~/assets/*", serve.StaticFiles(assetsFS))
//
// A file the filesystem does not hold is not a failure: the handler
// passes, letting later rules and pipelines take the request, while
// recording that a static handler matched so an eventual not-found keeps
// its 404.
func StaticFiles(fsys fs.FS) pipeline.Handler {
	return func(rq reqres.Request) pipeline.Result {
		name, err := rq.PathParams().Value(pattern.WildcardKey, params.Raw)
		if err != nil {
			// Registered without a wildcard; serve the whole request path.
			name = strings.TrimPrefix(rq.Path(), "/")
		}
		if name == "" {
			name = "index.html"
		}

		if !fs.ValidPath(name) {
			return pipeline.Fail(&reqres.MalformedPathError{Path: name, Reason: "invalid file path"})
		}

		f, err := fsys.Open(name)
		if err != nil {
			return pipeline.PassStatic()
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			return pipeline.PassStatic()
		}

		body, err := io.ReadAll(f)
		if err != nil {
			return pipeline.Fail(err)
		}

		ct := mime.TypeByExtension(path.Ext(name))
		if ct == "" {
			ct = http.DetectContentType(body)
		}
		return pipeline.Respond(reqres.NewBuffered(http.StatusOK, ct, body))
	}
}
