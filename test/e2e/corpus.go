// Package e2e runs a small research library through the whole pipeline and checks that
// every query finds the document it was written for.
package e2e

import (
	"fmt"
	"strings"
)

// LibraryDocument is one paper in the test library.
type LibraryDocument struct {
	Key   string
	Title string
	// Paragraphs become the document body, separated by blank lines.
	Paragraphs []string
}

// Text is the document body as it would appear in a plain text file.
func (d LibraryDocument) Text() string {
	return d.Title + "\n\n" + strings.Join(d.Paragraphs, "\n\n")
}

// QueryCase is a query and the document key that must appear among its results.
type QueryCase struct {
	Query       string
	ExpectedKey string
}

// Library holds the documents and the queries run against them.
type Library struct {
	Documents []LibraryDocument
	Queries   []QueryCase
}

type paper struct {
	key, title, signature, abstract, body string
}

var papers = []paper{
	{"he2016", "Deep Residual Learning", "residual shortcut connections",
		"Deeper networks are harder to train. We reformulate layers with residual shortcut connections that add the input to the output.",
		"Residual networks with over one hundred layers converge faster than plain networks of the same depth."},
	{"vaswani2017", "Attention Is All You Need", "multi-head self-attention",
		"We propose a sequence transducer built only from attention. Multi-head self-attention replaces recurrence entirely.",
		"The model trains in a fraction of the time of recurrent baselines on translation benchmarks."},
	{"devlin2019", "Pre-training of Deep Bidirectional Transformers", "masked language modelling",
		"Representations are pre-trained on unlabeled text with masked language modelling and next sentence prediction.",
		"Fine-tuning a single output layer yields strong results on eleven language understanding tasks."},
	{"karpukhin2020", "Dense Passage Retrieval", "dual encoder passage retrieval",
		"Open-domain question answering needs efficient retrieval. A dual encoder passage retrieval model learns dense representations.",
		"In-batch negatives make training efficient and the retriever outperforms term-based baselines."},
	{"robertson2009", "The Probabilistic Relevance Framework", "BM25 term weighting",
		"We review the probabilistic relevance framework and derive BM25 term weighting from the binary independence model.",
		"Document length normalization and term frequency saturation are controlled by two parameters."},
	{"lewis2020", "Retrieval-Augmented Generation", "retrieval augmented generation",
		"Parametric memory alone struggles with knowledge-intensive tasks. Retrieval augmented generation conditions a generator on retrieved passages.",
		"The retriever and generator are trained jointly without supervision on which documents to retrieve."},
	{"mikolov2013", "Distributed Representations of Words", "skip-gram negative sampling",
		"Word vectors learned with skip-gram negative sampling capture syntactic and semantic regularities.",
		"Subsampling frequent words speeds up training and improves the vectors of rare words."},
	{"johnson2019", "Billion-Scale Similarity Search", "product quantization GPU",
		"Nearest neighbour search over billions of vectors is feasible with product quantization GPU kernels.",
		"A k-selection algorithm running in registers keeps the search close to peak memory bandwidth."},
	{"malkov2018", "Hierarchical Navigable Small World Graphs", "navigable small world",
		"Approximate nearest neighbour search uses a hierarchy of proximity graphs forming a navigable small world.",
		"Search complexity scales logarithmically and the index supports incremental insertion."},
	{"reimers2019", "Sentence Embeddings with Siamese Networks", "siamese sentence embeddings",
		"Cross-encoders are too slow for semantic similarity search. Siamese sentence embeddings can be compared with cosine similarity.",
		"Finding the most similar pair in ten thousand sentences drops from hours to seconds."},
	{"lamport1978", "Time, Clocks, and the Ordering of Events", "logical clocks ordering",
		"We define a happened-before relation between events and logical clocks ordering them consistently.",
		"The clocks are used to build a distributed mutual exclusion algorithm."},
	{"ongaro2014", "In Search of an Understandable Consensus Algorithm", "leader election replicated log",
		"We present a consensus algorithm designed for understandability. Leader election replicated log management and safety are separated.",
		"A user study shows students understand it more easily than Paxos."},
	{"dean2004", "Simplified Data Processing on Large Clusters", "map and reduce functions",
		"Users specify map and reduce functions and the runtime parallelizes the computation across a cluster.",
		"The system handles machine failures by re-executing tasks on other workers."},
	{"chang2006", "A Distributed Storage System for Structured Data", "sparse sorted map",
		"The system is a sparse sorted map indexed by row key, column key and timestamp.",
		"Tablets are split automatically and served by many tablet servers."},
	{"decandia2007", "Highly Available Key-Value Store", "consistent hashing vector clocks",
		"Availability is favoured over consistency. Data is partitioned with consistent hashing vector clocks track versions.",
		"Sloppy quorums and hinted handoff keep writes accepted during failures."},
	{"oneil1996", "The Log-Structured Merge-Tree", "log-structured merge",
		"Write-heavy workloads benefit from the log-structured merge design that batches index changes in memory.",
		"Components are merged in a rolling fashion to amortize disk writes."},
	{"bloom1970", "Space/Time Trade-offs in Hash Coding", "allowable errors membership",
		"A hash coding method tolerating allowable errors membership tests uses far less space than exact methods.",
		"The false positive rate is traded against the number of bits per element."},
	{"page1999", "The PageRank Citation Ranking", "random surfer link analysis",
		"We rank web pages by a random surfer link analysis over the hyperlink graph.",
		"The ranking converges quickly with power iteration on large crawls."},
	{"salton1975", "A Vector Space Model for Automatic Indexing", "vector space indexing",
		"Documents and queries are represented in a vector space indexing model weighted by term importance.",
		"Retrieval effectiveness improves when index terms are well separated in the space."},
	{"manning2008", "Introduction to Information Retrieval", "inverted index postings",
		"The textbook covers the inverted index postings lists, tolerant retrieval and evaluation.",
		"Later chapters treat classification, clustering and web search."},
	{"kingma2015", "A Method for Stochastic Optimization", "adaptive moment estimation",
		"We introduce adaptive moment estimation, an optimizer using first and second moment estimates of gradients.",
		"The method is invariant to diagonal rescaling of the gradients."},
	{"srivastava2014", "Dropout", "randomly dropping units",
		"Overfitting in large networks is reduced by randomly dropping units during training.",
		"At test time a single unthinned network with scaled weights approximates the ensemble."},
	{"ioffe2015", "Batch Normalization", "internal covariate shift",
		"Training is complicated by internal covariate shift. Normalizing layer inputs per mini-batch allows higher learning rates.",
		"The technique also acts as a regularizer in some cases."},
	{"goodfellow2014", "Generative Adversarial Nets", "adversarial generator discriminator",
		"We train an adversarial generator discriminator pair in a minimax game.",
		"The generator learns to map noise to samples indistinguishable from data."},
}

// BuildLibrary returns the test library and one query per document.
func BuildLibrary() *Library {
	lib := &Library{}
	for _, p := range papers {
		lib.Documents = append(lib.Documents, LibraryDocument{
			Key:        p.key,
			Title:      p.title,
			Paragraphs: []string{p.abstract, p.body},
		})
		lib.Queries = append(lib.Queries, QueryCase{Query: p.signature, ExpectedKey: p.key})
	}
	return lib
}

// Describe names a query case for subtests.
func (q QueryCase) Describe() string {
	return fmt.Sprintf("%s finds %s", q.Query, q.ExpectedKey)
}

func containsPhrase(d LibraryDocument, phrase string) bool {
	return strings.Contains(strings.ToLower(d.Text()), strings.ToLower(phrase))
}
