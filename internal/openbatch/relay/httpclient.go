package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"

	"github.com/openbatch/openbatch/internal/common/batcherrors"
)

// HttpAgentClient talks to an execution agent over its HTTP API. Transient
// transport failures are retried here; anything surviving the retries
// surfaces to the core as an ordinary completion failure.
type HttpAgentClient struct {
	baseUrl  string
	client   *http.Client
	attempts uint
}

func NewHttpAgentClient(baseUrl string, timeout time.Duration, attempts uint) *HttpAgentClient {
	if attempts == 0 {
		attempts = 1
	}
	return &HttpAgentClient{
		baseUrl:  baseUrl,
		client:   &http.Client{Timeout: timeout},
		attempts: attempts,
	}
}

type signalBody struct {
	Signal string `json:"signal"`
}

func (c *HttpAgentClient) SignalJob(ctx context.Context, jobId string, signal string) error {
	payload, err := json.Marshal(&signalBody{Signal: signal})
	if err != nil {
		return errors.WithStack(err)
	}
	requestUrl := fmt.Sprintf("%s/v1/jobs/%s/signal", c.baseUrl, url.PathEscape(jobId))

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestUrl, bytes.NewReader(payload))
			if err != nil {
				return retry.Unrecoverable(errors.WithStack(err))
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := c.client.Do(req)
			if err != nil {
				return errors.WithStack(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

			switch {
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return nil
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(ErrUnknownJob)
			case resp.StatusCode >= 500:
				return errors.Errorf("agent returned %d: %s", resp.StatusCode, string(body))
			default:
				return retry.Unrecoverable(&batcherrors.ErrAgentRejected{
					JobId:   jobId,
					Message: fmt.Sprintf("agent returned %d: %s", resp.StatusCode, string(body)),
				})
			}
		},
		retry.Attempts(c.attempts),
		retry.Delay(100*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}
