package api

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// staticFiles serves dir read-only without directory listings. PDFs are
// sent as downloads named after their base filename.
func staticFiles(dir string) http.Handler {
	files := http.FileServer(fileOnlyFS{http.Dir(dir)})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(strings.ToLower(r.URL.Path), ".pdf") {
			w = &dispositionWriter{ResponseWriter: w, filename: path.Base(r.URL.Path)}
		}
		files.ServeHTTP(w, r)
	})
}

type fileOnlyFS struct {
	fs http.FileSystem
}

func (f fileOnlyFS) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}

// dispositionWriter adds Content-Disposition to successful responses only.
type dispositionWriter struct {
	http.ResponseWriter
	filename    string
	wroteHeader bool
}

func (w *dispositionWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if code >= 200 && code < 300 {
			w.Header().Set("Content-Disposition", `attachment; filename="`+w.filename+`"`)
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *dispositionWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
