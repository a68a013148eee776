package middleware

import (
	"github.com/labstack/echo/v4"
)

// hopByHopRequestHeaders are meaningful only for one transport leg and must
// not be forwarded across the proxy boundary. Upgrade is deliberately absent:
// the bridge routes upgrade requests itself.
var hopByHopRequestHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailer",
	"Transfer-Encoding",
}

// StripHopByHop returns an Echo middleware that removes hop-by-hop headers
// from inbound requests before they reach the forwarder. Responses are left
// untouched so relayed backend responses stay verbatim.
func StripHopByHop() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, h := range hopByHopRequestHeaders {
				c.Request().Header.Del(h)
			}
			return next(c)
		}
	}
}
