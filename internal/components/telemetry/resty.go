package telemetry

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
	report_resty_failed   = "resty.failed"
)

// query parameters whose values never reach a report
var secretParams = []string{"token", "access_token", "key", "secret"}

// ScrubUrl replaces the values of credential-like query parameters.
func ScrubUrl(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.RawQuery == "" {
		return raw
	}
	query := parsed.Query()
	scrubbed := false
	for key := range query {
		for _, secret := range secretParams {
			if strings.EqualFold(key, secret) {
				query.Set(key, "REDACTED")
				scrubbed = true
			}
		}
	}
	if !scrubbed {
		return raw
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// ScrubError scrubs the url held by a *url.Error anywhere in err's chain, in
// place, and returns err.
func ScrubError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = ScrubUrl(urlErr.URL)
	}
	return err
}

type instrumentResty struct {
	tel       API
	idcounter *uint64
}

// InstrumentResty reports every request made by the client through tel.
// Urls are passed through ScrubUrl first.
func InstrumentResty(client *resty.Client, tel API) {
	var idcounter uint64
	i := instrumentResty{tel: tel, idcounter: &idcounter}

	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

type reqCtxKeyType int

var reqCtxKey reqCtxKeyType

type reqCtx struct {
	id        uint64
	startTime time.Time
}

func (i instrumentResty) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	id := atomic.AddUint64(i.idcounter, 1)
	req.SetContext(context.WithValue(req.Context(), reqCtxKey, reqCtx{
		id:        id,
		startTime: time.Now(),
	}))
	i.tel.ReportDebug(report_resty_request, id, req.Method, ScrubUrl(req.URL))
	return nil
}

func (i instrumentResty) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	reqCtx, ok := res.Request.Context().Value(reqCtxKey).(reqCtx)
	if !ok {
		return nil
	}

	i.tel.ReportDebug(
		report_resty_response,
		reqCtx.id,
		time.Since(reqCtx.startTime).String(),
		res.Status(),
		res.Size(),
	)
	return nil
}

func (i instrumentResty) onError(req *resty.Request, err error) {
	var duration time.Duration
	reqCtx, ok := req.Context().Value(reqCtxKey).(reqCtx)
	if ok {
		duration = time.Since(reqCtx.startTime)
	}

	i.tel.ReportBroken(
		report_resty_failed,
		ScrubError(err),
		req.Method,
		ScrubUrl(req.URL),
		duration,
	)
}
