//go:build integration

package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"

	"github.com/sh1Nome/extract-streams-web/infrastructure/httpapi"
	"github.com/sh1Nome/extract-streams-web/infrastructure/i18n"

	"github.com/cucumber/godog"
	"go.uber.org/zap"
)

type apiContext struct {
	router   http.Handler
	response *httptest.ResponseRecorder
}

// SharedAPIContext is reset before each scenario via Before hook
var SharedAPIContext *apiContext

func getAPIContext() *apiContext {
	return SharedAPIContext
}

func InitializeAPIScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		SharedAPIContext = &apiContext{}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		SharedAPIContext = nil
		return c, nil
	})

	ctx.Step(`^the extraction API is running with an upload limit of (\d+) bytes$`, theExtractionAPIIsRunningWithAnUploadLimitOf)
	ctx.Step(`^I upload "([^"]*)" with content type "([^"]*)"$`, iUploadWithContentType)
	ctx.Step(`^I upload "([^"]*)" with content type "([^"]*)" accepting language "([^"]*)"$`, iUploadWithContentTypeAcceptingLanguage)
	ctx.Step(`^I upload a (\d+) byte "([^"]*)" with content type "([^"]*)"$`, iUploadABytesFileWithContentType)
	ctx.Step(`^the response status should be (\d+)$`, theResponseStatusShouldBe)
	ctx.Step(`^the response message should be "([^"]*)"$`, theResponseMessageShouldBe)
	ctx.Step(`^the response should be a ZIP attachment with (\d+) entries$`, theResponseShouldBeAZIPAttachmentWithEntries)
}

func theExtractionAPIIsRunningWithAnUploadLimitOf(limit int) error {
	translator, err := i18n.NewTranslator()
	if err != nil {
		return err
	}
	service := getPipelineContext().newPipelineService()
	getAPIContext().router = httpapi.NewRouter(httpapi.Config{
		MaxUploadBytes:      int64(limit),
		MaxInflightRequests: 2,
	}, service, translator, zap.NewNop())
	return nil
}

func upload(fileName, contentType, language string, content []byte) error {
	a := getAPIContext()
	if a.router == nil {
		return fmt.Errorf("the API is not running")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, httpapi.UploadField, fileName))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(content); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract_audio", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if language != "" {
		req.Header.Set("Accept-Language", language)
	}

	a.response = httptest.NewRecorder()
	a.router.ServeHTTP(a.response, req)
	return nil
}

func iUploadWithContentType(fileName, contentType string) error {
	return upload(fileName, contentType, "", getPipelineContext().content)
}

func iUploadWithContentTypeAcceptingLanguage(fileName, contentType, language string) error {
	return upload(fileName, contentType, language, getPipelineContext().content)
}

func iUploadABytesFileWithContentType(size int, fileName, contentType string) error {
	return upload(fileName, contentType, "", bytes.Repeat([]byte("v"), size))
}

func theResponseStatusShouldBe(status int) error {
	a := getAPIContext()
	if a.response == nil {
		return fmt.Errorf("no request was made")
	}
	if a.response.Code != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, a.response.Code, a.response.Body.String())
	}
	return nil
}

func theResponseMessageShouldBe(expected string) error {
	var body map[string]string
	if err := json.Unmarshal(getAPIContext().response.Body.Bytes(), &body); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}
	if body["message"] != expected {
		return fmt.Errorf("expected message %q, got %q", expected, body["message"])
	}
	return nil
}

func theResponseShouldBeAZIPAttachmentWithEntries(count int) error {
	resp := getAPIContext().response
	if ct := resp.Header().Get("Content-Type"); ct != "application/zip" {
		return fmt.Errorf("expected application/zip, got %q", ct)
	}
	if cd := resp.Header().Get("Content-Disposition"); cd == "" {
		return fmt.Errorf("missing Content-Disposition header")
	}
	_, names, err := readArchive(resp.Body.Bytes())
	if err != nil {
		return err
	}
	if len(names) != count {
		return fmt.Errorf("expected %d entries, got %v", count, names)
	}
	return nil
}
