package commons

import (
	"net/url"
	"strings"
)

// ViewURL is the capability link a guardian uses to open the order status page.
func ViewURL(baseURL, orderNumber, token string) string {
	q := url.Values{}
	q.Set("token", token)
	return strings.TrimRight(baseURL, "/") + "/orders/" + url.PathEscape(orderNumber) + "?" + q.Encode()
}

// ContentCallbackURL is the webhook target registered with the content
// provider. The provider cannot sign payloads, so the shared secret travels in
// the query string.
func ContentCallbackURL(baseURL, secret string) string {
	q := url.Values{}
	q.Set("secret", secret)
	return strings.TrimRight(baseURL, "/") + "/api/webhooks/content?" + q.Encode()
}
