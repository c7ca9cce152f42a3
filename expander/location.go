package expander

import (
	"mime"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ResolveLocation picks the location shared by every parameter of an operation:
// form for url-encoded POST bodies, formData for multipart POST bodies, query otherwise.
// URL-encoded wins when an operation consumes both.
func ResolveLocation(op Operation) Location {
	if !strings.EqualFold(op.Method, http.MethodPost) {
		return LocationQuery
	}

	var urlEncoded, multipart bool
	for _, ct := range op.Consumes {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			continue
		}
		switch mt {
		case echo.MIMEApplicationForm:
			urlEncoded = true
		case echo.MIMEMultipartForm:
			multipart = true
		}
	}

	switch {
	case urlEncoded:
		return LocationForm
	case multipart:
		return LocationFormData
	default:
		return LocationQuery
	}
}
