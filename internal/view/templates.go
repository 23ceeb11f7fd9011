package view

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/adverts-listing/adverts/internal/listing"
	"github.com/adverts-listing/adverts/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CurrentPath string
	Data        any
}

var pricePrinter = message.NewPrinter(language.Turkish)

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(funcMap()).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"image": func(photoURL, res string) string {
			return listing.ImageURL(photoURL, listing.ImageResolution(res))
		},
		"price":   FormatPrice,
		"date":    FormatDate,
		"pageURL": PageURL,
		"derefInt": func(v *int) string {
			if v == nil {
				return ""
			}
			return strconv.Itoa(*v)
		},
		"derefString": func(v *string) string {
			if v == nil {
				return ""
			}
			return *v
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
}

// FormatPrice prefers the catalog's formatted price and otherwise groups the
// raw amount with Turkish separators.
func FormatPrice(item listing.Item) string {
	if item.PriceFormatted != "" {
		return item.PriceFormatted
	}
	return pricePrinter.Sprintf("%d TL", item.Price)
}

// FormatDate prefers the catalog's formatted date.
func FormatDate(item listing.Item) string {
	if item.DateFormatted != "" {
		return item.DateFormatted
	}
	return item.Date
}

// PageURL is the canonical listing URL of the given page under f.
func PageURL(f listing.Filter, page int) string {
	return listing.URL(listing.WithPage(f, page))
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}
