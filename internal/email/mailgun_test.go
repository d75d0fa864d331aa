package email_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sablemail/dispatch-backend/internal/email"
)

func TestSendTemplate_PostsFormAndReturnsRequestID(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = map[string]string{
			"from":     r.PostFormValue("from"),
			"to":       r.PostFormValue("to"),
			"template": r.PostFormValue("template"),
			"v:docId":  r.PostFormValue("v:docId"),
			"v:name":   r.PostFormValue("v:name"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"<20260830.1234@mg.sablemail.com>","message":"Queued. Thank you."}`))
	}))
	defer srv.Close()

	sender := email.NewMailgunClient("key-test", "mg.sablemail.com", srv.URL)

	requestID, err := sender.SendTemplate(context.Background(), email.SendTemplateParams{
		To:       "person@x.com",
		Name:     "A Person",
		From:     "claims@mg.sablemail.com",
		Template: "claim-update",
		DocID:    "3c2a41a8-0000-0000-0000-000000000001",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if requestID != "<20260830.1234@mg.sablemail.com>" {
		t.Errorf("requestID: got %q", requestID)
	}

	if gotPath != "/v3/mg.sablemail.com/messages" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotUser != "api" || gotPass != "key-test" {
		t.Errorf("basic auth: got %q / %q", gotUser, gotPass)
	}
	if gotForm["to"] != "A Person <person@x.com>" {
		t.Errorf("to: got %q", gotForm["to"])
	}
	if gotForm["template"] != "claim-update" {
		t.Errorf("template: got %q", gotForm["template"])
	}
	if gotForm["v:docId"] != "3c2a41a8-0000-0000-0000-000000000001" {
		t.Errorf("v:docId: got %q", gotForm["v:docId"])
	}
	if gotForm["v:name"] != "A Person" {
		t.Errorf("v:name: got %q", gotForm["v:name"])
	}
}

func TestSendTemplate_NoNameSendsBareAddress(t *testing.T) {
	var gotTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotTo = r.PostFormValue("to")
		w.Write([]byte(`{"id":"<id-1>","message":"Queued."}`))
	}))
	defer srv.Close()

	sender := email.NewMailgunClient("key-test", "mg.sablemail.com", srv.URL)
	if _, err := sender.SendTemplate(context.Background(), email.SendTemplateParams{
		To:       "person@x.com",
		From:     "claims@mg.sablemail.com",
		Template: "claim-update",
		DocID:    "doc-1",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotTo != "person@x.com" {
		t.Errorf("to: got %q", gotTo)
	}
}

func TestSendTemplate_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Forbidden"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	sender := email.NewMailgunClient("bad-key", "mg.sablemail.com", srv.URL)
	if _, err := sender.SendTemplate(context.Background(), email.SendTemplateParams{
		To: "person@x.com", From: "claims@mg.sablemail.com", Template: "claim-update", DocID: "doc-1",
	}); err == nil {
		t.Fatal("expected an error for a 401 response")
	}
}

func TestSendTemplate_MissingIDIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"Queued."}`))
	}))
	defer srv.Close()

	sender := email.NewMailgunClient("key-test", "mg.sablemail.com", srv.URL)
	if _, err := sender.SendTemplate(context.Background(), email.SendTemplateParams{
		To: "person@x.com", From: "claims@mg.sablemail.com", Template: "claim-update", DocID: "doc-1",
	}); err == nil {
		t.Fatal("expected an error when the provider returns no id")
	}
}
