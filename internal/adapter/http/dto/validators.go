package dto

import (
	"html"
	"reflect"
	"strings"

	"ride-token-ledger/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("tx_hash", validateTxHash)
		_ = v.RegisterValidation("confirm_code", validateConfirmationCode)
	}
}

// validateTxHash accepts a 0x-prefixed 32-byte hex transaction hash.
func validateTxHash(fl validator.FieldLevel) bool {
	return domain.ValidTxHash(fl.Field().String())
}

// validateConfirmationCode accepts a 6-digit mobile-money code.
func validateConfirmationCode(fl validator.FieldLevel) bool {
	return domain.ValidConfirmationCode(fl.Field().String())
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string) of a struct pointer.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				s := sanitize(elem.String())
				elem.SetString(s)
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
