package verifier

import "net/url"

func hostnameOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return u.Hostname(), nil
}

func hostOnlyFromURL(rawURL string) string {
	host, _ := hostnameOf(rawURL)
	return host
}
