// Package blacklab embeds the corpus search pipeline in a Go program.
//
// Corpora are tokenized in memory; their forward index (used to build
// keyword-in-context snippets) lives in memory or in Valkey/Redis.
// Searches are cached and shared: two queries with a common prefix, for
// example the same pattern with different pages, compute that prefix once.
//
//	client, _ := blacklab.New(ctx, blacklab.WithWorkers(4))
//	defer client.Close()
//
//	_, _ = client.Corpora().Load(ctx, "news", "./data/news")
//	page, _ := client.Search("news").
//	    Pattern("the adj:_ fox").
//	    Where("right:1", "jumps").
//	    Page(0, 20).
//	    Hits(ctx)
//	for _, h := range page.Hits {
//	    fmt.Println(h.Left, h.Match, h.Right, h.Groups["adj"])
//	}
//
// Counting and grouping run over the same cached pipeline:
//
//	sum, _ := client.Search("news").Pattern("fox").Count(ctx)
//	fmt.Println(sum.Processed, sum.Docs)
//	groups, _ := client.Search("news").Pattern("the _").GroupBy("right").Groups(ctx)
package blacklab
