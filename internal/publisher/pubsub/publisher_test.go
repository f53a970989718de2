package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/catalog-profiler/internal/profiler"
	publisher "github.com/JakeFAU/catalog-profiler/internal/publisher/pubsub"
)

const project = "test-project"

func fakeServer(t *testing.T) (*pstest.Server, option.ClientOption) {
	t.Helper()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return srv, option.WithGRPCConn(conn)
}

func TestPublishDeliversJSON(t *testing.T) {
	ctx := context.Background()
	srv, conn := fakeServer(t)

	client, err := pubsub.NewClient(ctx, project, conn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	_, err = client.CreateTopic(ctx, "profiled")
	require.NoError(t, err)

	pub := publisher.NewWithClient(client)
	event := profiler.ProfiledEvent{RunID: "run-1", DatasetID: "ds-1", DatasetName: "One", Columns: 3}
	id, err := pub.Publish(ctx, "profiled", event)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NoError(t, pub.Close())

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	var got profiler.ProfiledEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, event.DatasetID, got.DatasetID)
	assert.Equal(t, 3, got.Columns)
	assert.Equal(t, "application/json", msgs[0].Attributes["content_type"])
}

func TestNewVerifiesTopic(t *testing.T) {
	ctx := context.Background()
	_, conn := fakeServer(t)

	_, err := publisher.New(ctx, publisher.Config{ProjectID: project, TopicID: "missing"}, conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestNewWithExistingTopic(t *testing.T) {
	ctx := context.Background()
	srv, conn := fakeServer(t)

	admin, err := pubsub.NewClient(ctx, project, conn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = admin.Close() })
	_, err = admin.CreateTopic(ctx, "events")
	require.NoError(t, err)

	pub, err := publisher.New(ctx, publisher.Config{ProjectID: project, TopicID: "events"}, conn)
	require.NoError(t, err)
	_, err = pub.Publish(ctx, "events", map[string]string{"k": "v"})
	require.NoError(t, err)
	require.NoError(t, pub.Close())
	assert.Len(t, srv.Messages(), 1)
}

func TestPublishValidation(t *testing.T) {
	t.Parallel()

	_, err := publisher.New(context.Background(), publisher.Config{})
	assert.Error(t, err)

	var empty publisher.Publisher
	_, err = empty.Publish(context.Background(), "t", "x")
	assert.Error(t, err)
}
