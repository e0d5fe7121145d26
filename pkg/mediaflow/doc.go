// Package mediaflow implements the workflow graph behind a visual
// AI media-generation dashboard.
//
// A workspace is a graph of nodes (image, video, chat, prompt-template)
// connected by directed edges that feed one node's output into another's
// input. The Engine is the entry point: it validates connections,
// resolves upstream dependencies before a node runs, submits image and
// video jobs to a remote generation service, polls them to completion,
// and persists the whole workspace as one document.
//
// Basic usage:
//
//	eng := mediaflow.NewEngine("ws-1",
//		mediaflow.WithGenerationClient(genapi.NewHTTPClient(baseURL, nil)),
//		mediaflow.WithStore(store.NewMemoryStore()),
//	)
//	defer eng.Close()
//
//	g := eng.Graph()
//	img := mediaflow.NewNode(mediaflow.NodeImage, "Hero image", mediaflow.Position{X: 100, Y: 100})
//	img.Image().Model = "flux-schnell"
//	img.Image().Prompt = "a lighthouse at dusk"
//	g.AddNode(img)
//
//	if err := eng.Generate(ctx, img.ID); err != nil {
//		// rejected before submission
//	}
//	eng.Await(ctx, img.ID)
//
// Subpackages:
//
//   - genapi: client for the remote generation service
//   - chat: LLM backend for chat nodes
//   - template: prompt-template library
//   - store: workspace persistence backends (memory, HTTP, SQLite, Postgres)
//   - canvas: editor geometry (viewport transforms, edge paths)
//   - notify: user-facing notification bus
//   - observability: structured logging, metrics, tracing
//   - config: engine settings from YAML/JSON
package mediaflow
