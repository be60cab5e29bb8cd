package exchange

import "net/http"

// resolveID extracts the session identifier from a flattened header list:
// the alternating name/value pairs the calling application received from
// its own client. It scans for Cookie headers under canonical-case
// matching, parses each value as a semicolon-delimited cookie-pair list,
// and returns the value named cookieName. A later occurrence overrides an
// earlier one; the empty string means no identifier was supplied.
func resolveID(headers []string, cookieName string) string {
	var id string
	for i := 0; i+1 < len(headers); i += 2 {
		if http.CanonicalHeaderKey(headers[i]) != "Cookie" {
			continue
		}
		cookies, err := http.ParseCookie(headers[i+1])
		if err != nil {
			continue
		}
		for _, c := range cookies {
			if c.Name == cookieName {
				id = c.Value
			}
		}
	}
	return id
}
