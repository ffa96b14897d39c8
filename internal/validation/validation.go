// Package validation decodes string config maps into typed structs and
// validates them, reporting failures as readable English messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/mitchellh/mapstructure"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// DateLayout is the layout used for date-valued config keys.
const DateLayout = "2006-01-02"

// use a single instance, it caches struct info
var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ = uni.GetTranslator("en")

	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"mapstructure", "toml"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return fld.Name
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(err)
	}
}

// Struct validates v against its validate tags. Failures wrap
// domain.ErrConfiguration and list every problem, separated by "; ".
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, e.Translate(trans))
	}
	return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(msgs, "; "))
}

// Decode fills out from a source config map and validates it.
// Values are weakly typed: "100" decodes into an int, "a, b" into a
// []string and "2025-01-31" into a time.Time.
func Decode(cfg map[string]string, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			trimmedSliceHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(DateLayout),
		),
	})
	if err != nil {
		return fmt.Errorf("create config decoder: %w", err)
	}

	input := make(map[string]any, len(cfg))
	for k, v := range cfg {
		input[k] = v
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	return Struct(out)
}

// trimmedSliceHook splits comma separated strings into slices, dropping
// blanks so that "" decodes to an empty slice.
func trimmedSliceHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
		return data, nil
	}
	var out []string
	for _, part := range strings.Split(data.(string), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

// ParseDate parses a date-valued setting.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q (want YYYY-MM-DD)", domain.ErrConfiguration, s)
	}
	return t, nil
}

// ParseEndDate parses an inclusive end date: the last instant of the day.
func ParseEndDate(s string) (time.Time, error) {
	t, err := ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(24*time.Hour - time.Nanosecond), nil
}
