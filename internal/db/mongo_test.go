package db

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/rapidroute-sim/internal/models"
)

func TestConnectMongo_BadURI(t *testing.T) {
	client, err := ConnectMongo("mongodb://bad:uri")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestConnectMongo_EmptyURI(t *testing.T) {
	client, err := ConnectMongo("")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestMongoCollection_NilCollection(t *testing.T) {
	coll := &MongoCollection{Collection: nil}

	assert.Error(t, coll.InsertActivation(context.Background(), models.Activation{}))
	_, err := coll.FindActivations(context.Background(), 10)
	assert.Error(t, err)
	assert.Error(t, coll.EnsureIndexes(context.Background()))
}

type MockCursor struct {
	mock.Mock
}

func (m *MockCursor) All(ctx context.Context, out interface{}) error {
	args := m.Called(ctx, out)
	return args.Error(0)
}

func (m *MockCursor) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestReadActivations(t *testing.T) {
	cursor := new(MockCursor)
	cursor.On("All", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		out := args.Get(1).(*[]models.Activation)
		*out = append(*out, models.Activation{Mode: models.ActivationPool, StartName: "A"})
	}).Return(nil)
	cursor.On("Close", mock.Anything).Return(nil)

	got, err := readActivations(context.Background(), cursor)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].StartName)
	cursor.AssertExpectations(t)
}

func TestReadActivations_DecodeError(t *testing.T) {
	cursor := new(MockCursor)
	cursor.On("All", mock.Anything, mock.Anything).Return(errors.New("bad bson"))
	cursor.On("Close", mock.Anything).Return(nil)

	_, err := readActivations(context.Background(), cursor)
	assert.ErrorContains(t, err, "bad bson")
	cursor.AssertCalled(t, "Close", mock.Anything)
}

type MockActivationCollection struct {
	mock.Mock
	mu       sync.Mutex
	inserted []models.Activation
}

func (m *MockActivationCollection) InsertActivation(ctx context.Context, a models.Activation) error {
	m.mu.Lock()
	m.inserted = append(m.inserted, a)
	m.mu.Unlock()
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockActivationCollection) FindActivations(ctx context.Context, limit int64) ([]models.Activation, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.Activation), args.Error(1)
}

func TestRecorder_Record(t *testing.T) {
	coll := new(MockActivationCollection)
	coll.On("InsertActivation", mock.Anything, mock.Anything).Return(nil)
	logger, hook := test.NewNullLogger()

	r := NewRecorder(coll, logger)
	r.Record(models.Activation{Mode: models.ActivationManual, StartName: "A", EndName: "C"})
	r.Record(models.Activation{Mode: models.ActivationManual, StartName: "C", EndName: "A"})
	r.Wait()

	assert.Len(t, coll.inserted, 2)
	assert.Empty(t, hook.AllEntries())
}

func TestRecorder_LogsFailure(t *testing.T) {
	coll := new(MockActivationCollection)
	coll.On("InsertActivation", mock.Anything, mock.Anything).Return(errors.New("write concern"))
	logger, hook := test.NewNullLogger()

	r := NewRecorder(coll, logger)
	r.Record(models.Activation{Mode: models.ActivationPool, StartName: "A", EndName: "B"})
	r.Wait()

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, "Failed to record route activation", entry.Message)
	assert.Equal(t, "pool", entry.Data["mode"])
}

// Integration test (requires running MongoDB)
func TestActivations_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	client, err := ConnectMongo(uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	coll := NewActivationCollection(client, "rapidroute_test")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, coll.Collection.Drop(ctx))
	require.NoError(t, coll.EnsureIndexes(ctx))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		a := models.Activation{Mode: models.ActivationManual, StartName: name, ActivatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, coll.InsertActivation(ctx, a))
	}

	got, err := coll.FindActivations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].StartName)
	assert.Equal(t, "second", got[1].StartName)
}
