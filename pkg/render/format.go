package render

import (
	"fmt"
	"html"
	"runtime/debug"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/bitechdev/ResolveGrid/pkg/common"
	"github.com/bitechdev/ResolveGrid/pkg/config"
	"github.com/bitechdev/ResolveGrid/pkg/logger"
	"github.com/bitechdev/ResolveGrid/pkg/metadata"
	"github.com/bitechdev/ResolveGrid/pkg/settings"
)

// Options control default cell formatting and where column layout is persisted.
type Options struct {
	Locale            language.Tag
	CurrencyPrefix    string
	CurrencySuffix    string
	CurrencyPrecision int
	DateFormat        string
	DateTimeFormat    string
	TimeFormat        string
	Yes               string
	No                string
	MinColumnWidth    int

	// Settings is optional. Without it the layout lives only as long as the renderer.
	Settings settings.Store
}

func DefaultOptions() Options {
	return Options{
		Locale:            language.English,
		CurrencyPrecision: 2,
		DateFormat:        "2006-01-02",
		DateTimeFormat:    "2006-01-02 15:04",
		TimeFormat:        "15:04",
		Yes:               "Yes",
		No:                "No",
		MinColumnWidth:    30,
	}
}

// withDefaults fills unset fields from DefaultOptions. CurrencyPrecision is only
// defaulted when no currency or date formatting was configured at all, so an explicit
// precision of 0 is kept.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Locale.IsRoot() {
		o.Locale = def.Locale
	}
	if o.CurrencyPrefix == "" && o.CurrencySuffix == "" && o.CurrencyPrecision == 0 &&
		o.DateFormat == "" && o.DateTimeFormat == "" && o.TimeFormat == "" {
		o.CurrencyPrecision = def.CurrencyPrecision
	}
	if o.CurrencyPrecision < 0 {
		o.CurrencyPrecision = 0
	}
	if o.DateFormat == "" {
		o.DateFormat = def.DateFormat
	}
	if o.DateTimeFormat == "" {
		o.DateTimeFormat = def.DateTimeFormat
	}
	if o.TimeFormat == "" {
		o.TimeFormat = def.TimeFormat
	}
	if o.Yes == "" {
		o.Yes = def.Yes
	}
	if o.No == "" {
		o.No = def.No
	}
	if o.MinColumnWidth <= 0 {
		o.MinColumnWidth = def.MinColumnWidth
	}
	return o
}

// OptionsFromConfig maps the render section of the configuration onto Options.
func OptionsFromConfig(cfg config.RenderConfig) Options {
	opts := DefaultOptions()
	if cfg.Locale != "" {
		tag, err := language.Parse(cfg.Locale)
		if err != nil {
			logger.Warn("Unknown render locale %q, using %s: %v", cfg.Locale, opts.Locale, err)
		} else {
			opts.Locale = tag
		}
	}
	opts.CurrencyPrefix = cfg.CurrencyPrefix
	opts.CurrencySuffix = cfg.CurrencySuffix
	if cfg.CurrencyPrecision >= 0 {
		opts.CurrencyPrecision = cfg.CurrencyPrecision
	}
	if cfg.DateFormat != "" {
		opts.DateFormat = cfg.DateFormat
	}
	if cfg.DateTimeFormat != "" {
		opts.DateTimeFormat = cfg.DateTimeFormat
	}
	if cfg.TimeFormat != "" {
		opts.TimeFormat = cfg.TimeFormat
	}
	return opts
}

// renderCustom runs a column's Render function. A panicking Render yields "".
func renderCustom(col metadata.Column, rec common.Record) (out string) {
	defer func() {
		if err := recover(); err != nil {
			logger.Error("Render of column %s panicked: %v\nStack trace:\n%s", col.Field, err, string(debug.Stack()))
			out = ""
		}
	}()
	return col.Render(rec)
}

// FormatCell produces the display text of one cell. html reports whether text is markup.
func FormatCell(col metadata.Column, rec common.Record, opts Options) (text string, isHTML bool) {
	if col.Render != nil {
		return renderCustom(col, rec), true
	}
	value, _ := rec.Get(col.Field)
	return FormatValue(col, value, opts)
}

// FormatValue applies the type specific default formatting to a raw value.
func FormatValue(col metadata.Column, value interface{}, opts Options) (string, bool) {
	if value == nil {
		return "", false
	}
	if len(col.Options) > 0 {
		if text, ok := col.OptionText(value); ok {
			return text, false
		}
	}

	switch col.Kind() {
	case metadata.TypeHTML:
		return common.ToString(value), true
	case metadata.TypeCurrency:
		return formatCurrency(value, opts), false
	case metadata.TypeFloat:
		f, ok := toFloat(value)
		if !ok {
			return common.ToString(value), false
		}
		return message.NewPrinter(opts.Locale).Sprint(number.Decimal(f)), false
	case metadata.TypeInt:
		if i, ok := common.ToInt64(value); ok {
			return fmt.Sprintf("%d", i), false
		}
	case metadata.TypeDate:
		return formatTime(value, opts.DateFormat), false
	case metadata.TypeDateTime:
		return formatTime(value, opts.DateTimeFormat), false
	case metadata.TypeTime:
		return formatTime(value, opts.TimeFormat), false
	case metadata.TypeCheckbox:
		if truthy(value) {
			return opts.Yes, false
		}
		return opts.No, false
	case metadata.TypeColor:
		c := html.EscapeString(common.ToString(value))
		return fmt.Sprintf(`<span style="background-color:%s">%s</span>`, c, c), true
	case metadata.TypePicture:
		src := html.EscapeString(common.ToString(value))
		if src == "" {
			return "", false
		}
		return fmt.Sprintf(`<img src="%s" alt="">`, src), true
	}
	return common.ToString(value), false
}

func formatCurrency(value interface{}, opts Options) string {
	f, ok := toFloat(value)
	if !ok {
		return common.ToString(value)
	}
	p := message.NewPrinter(opts.Locale)
	return opts.CurrencyPrefix + p.Sprint(number.Decimal(f, number.Scale(opts.CurrencyPrecision))) + opts.CurrencySuffix
}

func formatTime(value interface{}, layout string) string {
	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(layout)
	case *time.Time:
		if v == nil || v.IsZero() {
			return ""
		}
		return v.Format(layout)
	}
	s := common.ToString(value)
	if s == "" {
		return ""
	}
	t, err := common.ParseDateTime(s)
	if err != nil {
		return s
	}
	return t.Format(layout)
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int, int32, int64, uint, uint32, uint64:
		i, _ := common.ToInt64(v)
		return float64(i), true
	case string:
		var f float64
		if _, err := fmt.Sscan(v, &f); err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func truthy(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "1" || v == "true" || v == "t" || v == "yes"
	}
	i, ok := common.ToInt64(value)
	return ok && i != 0
}
