package site

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given a mux with the monitor page", t, func() {
		mux := http.NewServeMux()
		Register(mux)

		Convey("GET / serves the page", func() {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			So(w.Body.String(), ShouldContainSubstring, "Proctor monitor")
			So(w.Body.String(), ShouldContainSubstring, "/stream")
		})

		Convey("Unknown files are 404", func() {
			req := httptest.NewRequest(http.MethodGet, "/missing.js", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("The embedded filesystem has the index", func() {
			f, err := FS().Open("index.html")
			So(err, ShouldBeNil)
			So(f.Close(), ShouldBeNil)
		})
	})

	Convey("Registering on a nil mux panics", t, func() {
		So(func() { Register(nil) }, ShouldPanic)
	})
}
