// Package affiliate rewrites store product URLs into affiliate links.
package affiliate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// LinkType selects how the affiliate id is attached to a URL.
type LinkType string

const (
	LinkQueryParam LinkType = "query_param"
	LinkPathAppend LinkType = "path_append"
	LinkCustom     LinkType = "custom"
)

// Config is a store's affiliate link configuration.
type Config struct {
	Type LinkType `json:"type"`
	// ParamName is the query parameter for LinkQueryParam.
	ParamName string `json:"param_name,omitempty"`
	// PathPrefix is prepended with the affiliate id for LinkPathAppend.
	PathPrefix string `json:"path_prefix,omitempty"`
	// CustomTemplate may reference {url}, {affiliateId} and {merchantId}.
	CustomTemplate string `json:"custom_template,omitempty"`
	MerchantID     string `json:"merchant_id,omitempty"`
}

// Validate checks that the fields required by Type are present.
func (c Config) Validate() error {
	switch c.Type {
	case LinkQueryParam:
		if c.ParamName == "" {
			return errors.New("param_name is required for query_param links")
		}
	case LinkPathAppend:
		if c.PathPrefix == "" {
			return errors.New("path_prefix is required for path_append links")
		}
	case LinkCustom:
		if !strings.Contains(c.CustomTemplate, "{url}") {
			return errors.New("custom_template must contain {url}")
		}
	default:
		return fmt.Errorf("unknown affiliate link type %q", c.Type)
	}
	return nil
}

// Templates are ready-made configurations for known stores and networks.
var Templates = map[string]Config{
	"amazon":        {Type: LinkQueryParam, ParamName: "tag"},
	"magazineluiza": {Type: LinkQueryParam, ParamName: "partner_id"},
	"casasbahia":    {Type: LinkQueryParam, ParamName: "partner_id"},
	"kabum":         {Type: LinkQueryParam, ParamName: "tag"},
	"mercadolivre":  {Type: LinkCustom, CustomTemplate: "https://mercadolivre.com.br/jm/search?as_word={url}&as_advertiser_id={affiliateId}"},
	"aliexpress":    {Type: LinkCustom, CustomTemplate: "https://s.click.aliexpress.com/e/{affiliateId}?dp={url}"},
	"shopee":        {Type: LinkCustom, CustomTemplate: "https://shope.ee/{affiliateId}?smtt=0.0.9&url={url}"},
	"awin":          {Type: LinkCustom, CustomTemplate: "https://www.awin1.com/cread.php?awinmid={merchantId}&awinaffid={affiliateId}&clickref=crazypromo&p={url}"},
	"lomadee":       {Type: LinkCustom, CustomTemplate: "https://redir.lomadee.com/v2/deeplink?sourceId={affiliateId}&url={url}"},
}

// Generate builds the affiliate link for originalURL.
func Generate(originalURL, affiliateID string, cfg Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	switch cfg.Type {
	case LinkCustom:
		r := strings.NewReplacer(
			"{url}", encodeComponent(originalURL),
			"{affiliateId}", affiliateID,
			"{merchantId}", cfg.MerchantID,
		)
		return r.Replace(cfg.CustomTemplate), nil
	}

	u, err := url.Parse(originalURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid product URL %q", originalURL)
	}

	if cfg.Type == LinkQueryParam {
		q := u.Query()
		q.Set(cfg.ParamName, affiliateID)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	prefix := strings.Trim(cfg.PathPrefix, "/")
	u.Path = "/" + prefix + "/" + affiliateID + u.Path
	u.RawPath = ""
	return u.String(), nil
}

// Link is Generate with a fallback: without an affiliate id or usable
// configuration the original URL is returned unchanged.
func Link(originalURL, affiliateID string, cfg *Config) string {
	if affiliateID == "" || cfg == nil || cfg.Type == "" {
		return originalURL
	}
	link, err := Generate(originalURL, affiliateID, *cfg)
	if err != nil {
		return originalURL
	}
	return link
}

func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
