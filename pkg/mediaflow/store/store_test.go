package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rmurphy/mediaflow/pkg/mediaflow"
)

// sampleDocument builds a small two-node workspace for round trips.
func sampleDocument(t *testing.T) *mediaflow.Document {
	t.Helper()
	g := mediaflow.NewGraph("Test Workspace")

	img := mediaflow.NewNode(mediaflow.NodeImage, "hero", mediaflow.Position{X: 100, Y: 50})
	img.Image().Model = "flux-kontext"
	img.Image().Prompt = "a lighthouse"
	img.Image().Status = mediaflow.StatusCompleted
	img.Image().OutputURL = "https://cdn/lighthouse.png"
	require.NoError(t, g.AddNode(img))

	vid := mediaflow.NewNode(mediaflow.NodeVideo, "clip", mediaflow.Position{X: 400, Y: 50})
	vid.Video().Model = "kling-v1.6"
	vid.Video().Status = mediaflow.StatusProcessing
	vid.Video().GenerationID = "job-17"
	require.NoError(t, g.AddNode(vid))

	_, err := g.AddEdge(img.ID, vid.ID)
	require.NoError(t, err)

	return g.Document()
}

// roundTrip saves then loads a document through any backend and checks
// the interesting fields survived.
func roundTrip(t *testing.T, s mediaflow.WorkspaceStore) {
	t.Helper()
	ctx := context.Background()
	doc := sampleDocument(t)

	require.NoError(t, s.Save(ctx, "ws-1", doc))

	got, err := s.Load(ctx, "ws-1")
	require.NoError(t, err)
	require.Equal(t, "Test Workspace", got.Name)
	require.Len(t, got.Data.Nodes, 2)
	require.Len(t, got.Data.Edges, 1)

	img := got.Data.Nodes[0]
	require.Equal(t, mediaflow.NodeImage, img.Type)
	require.Equal(t, "https://cdn/lighthouse.png", img.Image().OutputURL)

	vid := got.Data.Nodes[1]
	require.Equal(t, mediaflow.StatusProcessing, vid.Status())
	require.Equal(t, "job-17", vid.GenerationID())
}
