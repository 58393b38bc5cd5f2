package appfs_test

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhkim0602/monguri-sub002/core"
	appfs "github.com/jhkim0602/monguri-sub002/fs"
)

type errLogger struct{ errs []string }

func (l *errLogger) Debug(string, ...interface{}) {}
func (l *errLogger) Info(string, ...interface{})  {}
func (l *errLogger) Warn(string, ...interface{})  {}
func (l *errLogger) Fatal(string, ...interface{}) {}
func (l *errLogger) Error(msg string, _ ...interface{}) {
	l.errs = append(l.errs, msg)
}

func TestFS_baseTemplates(t *testing.T) {
	for _, name := range []string{"_base.txt", "_base.gohtml"} {
		_, err := fs.Stat(appfs.FS, "assets/templates/email/"+name)
		assert.NoError(t, err, name)
	}
}

func TestFS_emailTemplates(t *testing.T) {
	logger := &errLogger{}
	core.ParseEmailTemplates(appfs.FS, true, logger)
	require.Empty(t, logger.errs)

	tests := []struct {
		template string
		data     map[string]interface{}
		contains string
	}{
		{
			template: "feedback_received",
			data: map[string]interface{}{
				"MenteeName": "Lee",
				"MentorName": "Kim",
				"TaskTitle":  "Essay",
				"TaskID":     "task-1",
				"Rating":     4,
				"Comment":    "Well structured",
			},
			contains: "Well structured",
		},
		{
			template: "password_reset",
			data: map[string]interface{}{
				"Name":  "Lee",
				"UID":   "uid-1",
				"Token": "tok-1",
			},
			contains: "/password-reset/uid-1/tok-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			msg := core.EmailMessage{
				TemplateName:    tt.template,
				TemplateData:    tt.data,
				FrontendBaseURL: "https://app.example",
			}
			require.NoError(t, msg.Render())
			assert.True(t, msg.HasContent())
			assert.Contains(t, msg.TextContent, tt.contains, fmt.Sprintf("%s.txt", tt.template))
			assert.Contains(t, msg.HTMLContent, tt.contains, fmt.Sprintf("%s.gohtml", tt.template))
		})
	}
}
