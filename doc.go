// Package vecstore stores texts with metadata as vectors and searches them by
// similarity, on BigQuery, Redis, Valkey or in memory.
//
// A typical session:
//
//	emb, _ := vecstore.NewVertexAIEmbedder(ctx, project, "us-central1", "text-embedding-005")
//	client, _ := vecstore.New(ctx,
//		vecstore.WithBigQuery(project, "US"),
//		vecstore.WithEmbedder(emb),
//		vecstore.WithQueryEmbedder(emb.ForQueries()),
//	)
//	defer client.Close()
//
//	client.Datasets().Ensure(ctx, "vector_demo")
//	store, _ := client.VectorStore(ctx, "vector_demo", "fruits",
//		vecstore.WithDistanceStrategy(vecstore.Euclidean))
//
//	store.AddTexts(ctx, []string{"Pineapple", "Banana"},
//		[]map[string]any{{"len": 9}, {"len": 6}})
//	hits, _ := store.SimilaritySearch(ctx, "yellow fruit", 4,
//		vecstore.WithFilter(map[string]any{"len": 6}))
//
// Errors wrap the sentinels in this package; match them with errors.Is.
package vecstore
