package middleware

import (
	"context"
	"net/http"

	"github.com/soaringjerry/Encuesta/internal/utils"
)

type ctxKey int

const localeKey ctxKey = 1

// LocaleMiddleware resolves the message locale from ?lang or Accept-Language.
func LocaleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale := utils.DetermineLocale(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"), utils.SupportedLocales, utils.DefaultLocale)
		w.Header().Set("Content-Language", locale)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), localeKey, locale)))
	})
}

func LocaleFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(localeKey).(string); ok {
		return s
	}
	return utils.DefaultLocale
}
