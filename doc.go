// Package photarium defines the shared types and helpers of the Photarium
// retrieval core: image records and their origin metadata, the embedding
// spaces searched by the vector index, and the logging/marshaling plumbing
// used across the subpackages. Concrete machinery lives in subpackages:
// redis (connection management), vector (index, similarity and opposite
// search), cache (the three-tier metadata cache), origin (listing adapters),
// embed (text-to-vector clients) and rest_api (the HTTP surface).
//
// The vector index and the metadata cache are independently maintained views
// of the same image collection. They may transiently disagree; callers join
// search results against cache records for display and tolerate misses.
package photarium
