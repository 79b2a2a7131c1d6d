package storefront

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	"courseharvest/internal/components/assert"
	"courseharvest/internal/components/telemetry"
	"courseharvest/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("courseharvest/internal/storefront")

const (
	report_client_fetch = "client.fetch"
	report_client_cache = "client.cache"
)

// ErrStatus is returned for pages answered with a non 2xx status.
var ErrStatus = errors.New("storefront: unexpected status")

const (
	navContainerSelector = `[class*="sidebar"], [class*="menu"], aside, nav`
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

// headings in the order they are considered as a page title
var headingSelectors = []string{
	"h1",
	"h2",
	`[data-lesson-title], [class*="lesson-title"]`,
}

// Page is the server rendered content of a storefront page.
type Page struct {
	Url        string
	Status     int
	Title      string
	Anchors    []htmlutil.Anchor
	NavAnchors []htmlutil.Anchor
	Headings   []string
}

type ClientOptions struct {
	Timeout time.Duration
	// RequestsPerSecond of 0 disables the limit.
	RequestsPerSecond float64
	UserAgent         string
	// Cache is optional.
	Cache         *badger.DB
	CacheLifetime time.Duration
}

// Client fetches storefront pages without a browser, for pages that do not
// need client side rendering to expose their links.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	cache *pageCache
	tel   telemetry.API
}

func NewClient(baseUrl string, opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("storefront", tel)

	parsedBaseUrl, err := url.Parse(baseUrl)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}

	if opts.RequestsPerSecond > 0 {
		// burst of 1 keeps requests evenly spaced
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel)

	c := &Client{
		BaseUrl: parsedBaseUrl,
		Http:    httpClient,
		tel:     tel,
	}
	if opts.Cache != nil {
		c.cache = &pageCache{db: opts.Cache, lifetime: opts.CacheLifetime}
	}
	return c, nil
}

func (c *Client) body(ctx context.Context, rawUrl string) (int, []byte, error) {
	if c.cache != nil {
		cached, err := c.cache.get(ctx, rawUrl)
		if err == nil {
			c.tel.ReportDebug("cache hit", telemetry.ScrubUrl(rawUrl))
			return cached.Status, cached.Body, nil
		}
		if !errors.Is(err, errPageNotCached) {
			c.tel.ReportWarning(report_client_cache, fmt.Errorf("get: %w", err), telemetry.ScrubUrl(rawUrl))
		}
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get(rawUrl)
	if err != nil {
		// transport errors carry the request url, token included
		err = telemetry.ScrubError(err)
		c.tel.ReportBroken(report_client_fetch, err, telemetry.ScrubUrl(rawUrl))
		return 0, nil, err
	}

	status := res.StatusCode()
	if c.cache != nil && status >= 200 && status < 300 {
		err = c.cache.set(ctx, rawUrl, cachedPage{
			Status:   status,
			Body:     res.Body(),
			CachedAt: time.Now().Unix(),
		})
		if err != nil {
			c.tel.ReportWarning(report_client_cache, fmt.Errorf("set: %w", err), telemetry.ScrubUrl(rawUrl))
		}
	}
	return status, res.Body(), nil
}

// Fetch downloads rawUrl and extracts its links and headings.
func (c *Client) Fetch(ctx context.Context, rawUrl string) (Page, error) {
	ctx, span := tracer.Start(ctx, "Client.Fetch")
	defer span.End()

	pageUrl, err := c.BaseUrl.Parse(rawUrl)
	if err != nil {
		return Page{}, err
	}

	status, body, err := c.body(ctx, pageUrl.String())
	if err != nil {
		return Page{}, err
	}
	if status < 200 || status >= 300 {
		return Page{Url: pageUrl.String(), Status: status}, fmt.Errorf("%w: %d", ErrStatus, status)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		c.tel.ReportBroken(report_client_fetch, fmt.Errorf("parse html: %w", err), telemetry.ScrubUrl(pageUrl.String()))
		return Page{}, err
	}

	page := Extract(pageUrl, doc)
	page.Status = status
	return page, nil
}

// Extract reads the links and headings of a parsed document the same way the
// browser queries read a rendered one.
func Extract(pageUrl *url.URL, doc *goquery.Document) Page {
	page := Page{
		Url:        pageUrl.String(),
		Title:      htmlutil.NormalizeText(doc.Find("title").First().Text()),
		Anchors:    htmlutil.GetAnchors(pageUrl, doc.Find("a[href]")),
		NavAnchors: htmlutil.GetAnchors(pageUrl, doc.Find(navContainerSelector).First().Find("a[href]")),
	}
	for _, sel := range headingSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			page.Headings = append(page.Headings, s.Text())
		})
	}
	return page
}
