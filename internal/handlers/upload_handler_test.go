package handlers_test

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) upload(target, token, filename string, content []byte) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(e.t, err)
	_, err = part.Write(content)
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestUploadFile(t *testing.T) {
	e := newEnv(t)
	token := e.token(e.fx.Admin(), "ADMIN")

	w := e.upload("/v1/upload", token, "logo.png", []byte("\x89PNG fake"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	url := decode(t, w)["url"].(string)
	assert.Regexp(t, `^http://api\.test/uploads/[0-9a-f-]{36}\.png$`, url)

	// Served back from the upload dir.
	get := httptest.NewRecorder()
	e.router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/uploads/"+path.Base(url), nil))
	assert.Equal(t, http.StatusOK, get.Code)

	w = e.upload("/v1/upload", token, "script.sh", []byte("#!/bin/sh"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadMOUDocument(t *testing.T) {
	e := newEnv(t)
	s := seedMOUParties(e, "ACCEPTED")
	id, code := e.createMOU(s)
	require.Equal(t, http.StatusCreated, code)
	target := fmt.Sprintf("/v1/mous/%d/document", id)

	w := e.upload(target, e.token(s.infUser, "INFLUENCER"), "signed.pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, e.fx.Count("SELECT COUNT(*) FROM mous WHERE id = ? AND document_url IS NOT NULL", id))

	code, _ = e.decide(id, s.brandUser, "BRAND", "REJECTED", "changed plans")
	require.Equal(t, http.StatusOK, code)
	w = e.upload(target, e.token(s.infUser, "INFLUENCER"), "signed.pdf", []byte("%PDF-1.4"))
	assert.Equal(t, http.StatusConflict, w.Code)
}
