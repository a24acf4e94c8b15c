package smtp

import (
	"context"
	"fmt"
	"io"

	"github.com/go-resty/resty/v2"
)

// FindEmail searches the test mail catcher for the last email sent to the
// given address. It returns io.EOF when there is none and clears the inbox
// otherwise. Only meant for tests.
func (se *Email) FindEmail(ctx context.Context, to string) (string, error) {
	//revive:disable:nested-structs
	var found struct {
		Items []struct {
			Content struct {
				Body string `json:"Body"`
			} `json:"Content"`
		} `json:"items"`
	}
	resp, err := se.testAPI().R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"kind": "to", "query": to}).
		SetResult(&found).
		Get("/api/v2/search")
	if err != nil {
		return "", fmt.Errorf("could not send request: %v", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}
	if len(found.Items) == 0 {
		return "", io.EOF
	}
	return found.Items[0].Content.Body, se.clear(ctx)
}

func (se *Email) clear(ctx context.Context) error {
	resp, err := se.testAPI().R().SetContext(ctx).Delete("/api/v1/messages")
	if err != nil {
		return fmt.Errorf("could not send request: %v", err)
	}
	if resp.IsError() {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}
	return nil
}

func (se *Email) testAPI() *resty.Client {
	return resty.New().SetBaseURL(fmt.Sprintf("http://%s:%d", se.config.SMTPServer, se.config.TestAPIPort))
}
