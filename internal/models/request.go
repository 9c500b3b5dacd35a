package models

import "errors"

// BatchProcessRequest carries several events in one call.
type BatchProcessRequest struct {
	Events []*Event `json:"events"`
}

func (r *BatchProcessRequest) Validate() error {
	if len(r.Events) == 0 {
		return errors.New("events cannot be empty")
	}
	for _, ev := range r.Events {
		if ev == nil {
			return errors.New("events cannot contain null entries")
		}
	}
	return nil
}
