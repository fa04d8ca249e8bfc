package mocks

import (
	"testing"

	"go.uber.org/mock/gomock"
)

// NewMockRecordAPIForTest creates a MockRecordAPI whose controller is finished on cleanup
func NewMockRecordAPIForTest(t *testing.T) *MockRecordAPI {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return NewMockRecordAPI(ctrl)
}
