package sessionapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SijoOrganization/sijo-qcm-front/internal/model"
	"github.com/SijoOrganization/sijo-qcm-front/internal/response"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append(opts, WithHTTPClient(srv.Client()))
	return New(srv.URL+"/api", time.Second, opts...)
}

func signToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestStatusUnwrapsEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/candidate/session/s1/status", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(response.HeaderRequestID))
		json.NewEncoder(w).Encode(response.Response{
			Data: model.QuizSessionStatus{
				Status:               model.SessionStatusInProgress,
				CurrentQuestionIndex: 1,
				TotalQuestions:       4,
				RemainingTimeSeconds: 90,
			},
			Metadata: response.Metadata{RequestID: "r"},
		})
	})

	st, err := c.Status(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", st.SessionID)
	assert.Equal(t, 1, st.CurrentQuestionIndex)
	assert.Equal(t, 90, st.RemainingTimeSeconds)
}

func TestCurrentQuestionAcceptsBareBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"q1","text":"2+2?","type":"qcm","answers":[{"id":"a1","option":"3"},{"id":"a2","option":"4"}]}`))
	})

	q, err := c.CurrentQuestion(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.QuestionTypeQCM, q.Type)
	assert.True(t, q.HasOption("a2"))
}

func TestMalformedResponseIsRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"in_progress","currentQuestionIndex":5,"totalQuestions":2}`))
	})

	_, err := c.Status(context.Background(), "s1")
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestErrorEnvelopeBecomesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body model.NavigateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 7, body.QuestionIndex)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(response.Response{
			Error:    &response.ErrorBody{Code: response.ErrQuestionOutOfRange, Message: "out"},
			Metadata: response.Metadata{RequestID: "r"},
		})
	})

	err := c.Navigate(context.Background(), "s1", 7)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, response.ErrQuestionOutOfRange, apiErr.Code)
	assert.Equal(t, "r", apiErr.RequestID)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestBareErrorMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"database down"}`))
	})

	err := c.Pause(context.Background(), "s1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "database down", apiErr.Message)
}

func TestBearerTokenIsSent(t *testing.T) {
	token := signToken(t, time.Now().Add(time.Hour))
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		var body model.ReportActivityRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, model.ActivityLargePaste, body.ActivityType)
		w.WriteHeader(http.StatusNoContent)
	}, WithToken(token))

	require.NoError(t, c.CheckToken())
	require.NoError(t, c.ReportActivity(context.Background(), "s1", model.ActivityLargePaste))
}

func TestCheckToken(t *testing.T) {
	c := New("http://unused", time.Second)
	require.NoError(t, c.CheckToken())

	c.SetToken(signToken(t, time.Now().Add(-time.Minute)))
	require.ErrorIs(t, c.CheckToken(), ErrTokenExpired)

	c.SetToken("not-a-jwt")
	require.ErrorIs(t, c.CheckToken(), ErrTokenMalformed)
}

func TestLoginKeepsToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/candidate/login", r.URL.Path)
		w.Write([]byte(`{"token":"abc","candidateId":"c1"}`))
	})

	out, err := c.Login(context.Background(), model.LoginRequest{Email: "a@b.c", AccessCode: "1234"})
	require.NoError(t, err)
	assert.Equal(t, "c1", out.CandidateID)
	assert.Equal(t, "abc", c.Token())
}
