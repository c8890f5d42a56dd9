package commands

import (
	"time"

	"esic-scraper/lib/esic/detail"
	"esic-scraper/lib/esic/download"
	"esic-scraper/lib/esic/portal"
	"esic-scraper/lib/recordstore"
	"esic-scraper/lib/restyutil"
)

type PortalConfig struct {
	UserAgent         string  `json:"user_agent"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`
	// HttpDumps is a directory that receives every request and response,
	// it is only written to with --verbose.
	HttpDumps string `json:"http_dumps"`
}

type DownloadConfig struct {
	FormURL     string `json:"form_url"`
	Encoding    string `json:"encoding"`
	YearField   string `json:"year_field"`
	FormatField string `json:"format_field"`
	MinYear     int    `json:"min_year"`
}

type DetailConfig struct {
	SearchURL      string `json:"search_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	SettleSeconds  int    `json:"settle_seconds"`
	ShowBrowser    bool   `json:"show_browser"`
}

type Config struct {
	Portal   PortalConfig       `json:"portal"`
	Download DownloadConfig     `json:"download"`
	Detail   DetailConfig       `json:"detail"`
	Database recordstore.Config `json:"database"`
}

func DefaultConfig() Config {
	return Config{
		Portal: PortalConfig{
			TimeoutSeconds:    300,
			RequestsPerSecond: 2,
		},
		Download: DownloadConfig{
			FormURL:     download.DefaultFormURL,
			Encoding:    download.DefaultEncoding,
			YearField:   download.DefaultYearField,
			FormatField: download.DefaultFormatField,
			MinYear:     download.DefaultMinYear,
		},
		Detail: DetailConfig{
			SearchURL:      detail.DefaultSearchURL,
			TimeoutSeconds: 90,
			SettleSeconds:  2,
		},
		Database: recordstore.Config{
			File: "esic.db",
		},
	}
}

func (c PortalConfig) Options() (portal.Options, error) {
	opts := portal.Options{
		UserAgent:         c.UserAgent,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		CloudflareBypass:  c.CloudflareBypass,
	}
	if c.HttpDumps != "" && verbose {
		output, err := restyutil.NewFilesystemOutput(c.HttpDumps)
		if err != nil {
			return portal.Options{}, err
		}
		opts.Output = output
	}
	return opts, nil
}

func (c DownloadConfig) Options() download.Options {
	return download.Options{
		FormURL:     c.FormURL,
		Encoding:    c.Encoding,
		YearField:   c.YearField,
		FormatField: c.FormatField,
		MinYear:     c.MinYear,
	}
}

func (c DetailConfig) Options() detail.ChromeOptions {
	return detail.ChromeOptions{
		Timeout:     time.Duration(c.TimeoutSeconds) * time.Second,
		Settle:      time.Duration(c.SettleSeconds) * time.Second,
		ShowBrowser: c.ShowBrowser,
	}
}
