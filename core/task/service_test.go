package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type warnLogger struct{ warnings []string }

func (l *warnLogger) Debug(string, ...interface{}) {}
func (l *warnLogger) Info(string, ...interface{})  {}
func (l *warnLogger) Error(string, ...interface{}) {}
func (l *warnLogger) Fatal(string, ...interface{}) {}
func (l *warnLogger) Warn(msg string, _ ...interface{}) {
	l.warnings = append(l.warnings, msg)
}

func TestService_Summarize(t *testing.T) {
	logger := &warnLogger{}
	svc := NewService(Deps{Logger: logger})

	s := svc.Summarize([]View{
		{MentorTask: MentorTask{ID: "t1", Status: StatusPending}},
		{MentorTask: MentorTask{ID: "t2", Status: StatusSubmitted}},
	})
	assert.Equal(t, Summary{Total: 2, Pending: 1, Submitted: 1}, s)
	assert.Empty(t, logger.warnings)

	s = svc.Summarize([]View{
		{MentorTask: MentorTask{ID: "t1", Status: StatusPending}},
		{MentorTask: MentorTask{ID: "t3", Status: "archived"}},
	})
	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 1, s.Unknown)
	require.Len(t, logger.warnings, 1)
	assert.Contains(t, logger.warnings[0], "t3=archived")
}
