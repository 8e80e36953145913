package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"thera_chat_server/pkg/constants"
	"thera_chat_server/pkg/errorx"
)

func newUploadContext(t *testing.T, fileSize int) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for field, value := range map[string]string{
		"appointmentId": "1",
		"role":          constants.RolePatient,
		"actorId":       "p1",
	} {
		if err := writer.WriteField(field, value); err != nil {
			t.Fatalf("write field %s: %v", field, err)
		}
	}
	if fileSize > 0 {
		part, err := writer.CreateFormFile("file", "report.bin")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(bytes.Repeat([]byte{'x'}, fileSize)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	writer.Close()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/chat/upload", &buf)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	return c, w
}

func decodeCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var rsp struct {
		Code int `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &rsp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rsp.Code
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	// 超限文件在落盘之前就被拒绝，service 和 store 都不会被触碰
	h := NewChatHandler(nil, nil)
	c, w := newUploadContext(t, constants.FILE_MAX_SIZE+1)

	h.Upload(c)

	if code := decodeCode(t, w); code != errorx.CodeInvalidParam {
		t.Fatalf("code = %d, want %d", code, errorx.CodeInvalidParam)
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	h := NewChatHandler(nil, nil)
	c, w := newUploadContext(t, 0)

	h.Upload(c)

	if code := decodeCode(t, w); code != errorx.CodeInvalidParam {
		t.Fatalf("code = %d, want %d", code, errorx.CodeInvalidParam)
	}
}
