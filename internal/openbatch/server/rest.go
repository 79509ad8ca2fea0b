package server

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/openbatch/openbatch/internal/common/batcherrors"
	"github.com/openbatch/openbatch/pkg/api"
)

// signalOutcome is the JSON form of one target outcome.
type signalOutcome struct {
	JobId string `json:"jobId"`
	Code  string `json:"code"`
	Error string `json:"error,omitempty"`
}

type signalReply struct {
	RequestId string          `json:"requestId"`
	JobId     string          `json:"jobId"`
	Outcomes  []signalOutcome `json:"outcomes"`
}

// Handler returns the HTTP frontend: POST /v1/signal with a JSON-encoded
// SignalJobRequest. The wire format is a convenience; the contract is the
// api package.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/signal", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req api.SignalJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp, err := s.Handle(r.Context(), &req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		reply := signalReply{
			RequestId: resp.RequestId,
			JobId:     resp.JobId,
			Outcomes:  make([]signalOutcome, 0, len(resp.Outcomes)),
		}
		for _, outcome := range resp.Outcomes {
			o := signalOutcome{
				JobId: outcome.JobId,
				Code:  batcherrors.CodeFromError(outcome.Err).String(),
			}
			if outcome.Err != nil {
				o.Error = outcome.Err.Error()
			}
			reply.Outcomes = append(reply.Outcomes, o)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(&reply); err != nil {
			log.WithError(err).Warn("failed to write signal reply")
		}
	})
	return mux
}
