package cmd

import (
	"crypto/tls"
	"log"
	"net/http"
	"net/url"
)

// proxiedClient returns an HTTP client honoring the global --proxy flag.
// Returns nil when no proxy is set so callers keep their own defaults.
func proxiedClient() *http.Client {
	proxy, _ := rootCmd.PersistentFlags().GetString("proxy")
	if proxy == "" {
		return nil
	}

	proxyURL, err := url.Parse(proxy)
	if err != nil {
		log.Fatal("Invalid Proxy String")
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		},
	}
}
