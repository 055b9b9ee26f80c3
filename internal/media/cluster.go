package media

import (
	"sort"

	"github.com/open4good/open4goods-sub001/internal/model"
)

// PlaceholderCover is the cover path used when a product has no usable
// image resource at all.
const PlaceholderCover = "placeholder.webp"

// Cluster is a group of visually similar images. Members are ordered by
// descending pixel count, so the first member is the cluster
// representative.
type Cluster struct {
	ID      int
	Members []*model.Resource
	// centroid is the mean of the member embeddings that exist.
	centroid []float64
}

// Representative returns the highest-resolution member.
func (c *Cluster) Representative() *model.Resource {
	if c == nil || len(c.Members) == 0 {
		return nil
	}
	return c.Members[0]
}

// ClusterImages groups the given images by visual similarity in a single
// greedy pass. Each image is compared against the first-inserted member of
// every existing cluster and joins the best-matching one at or above the
// similarity threshold, otherwise it founds a new cluster. Images without
// an embedding always found a singleton cluster. The pass is
// order-dependent on purpose: the input order is the stable resource order
// of the product, so repeated runs produce identical clusters.
func ClusterImages(images []*model.Resource, threshold float64) []*Cluster {
	type seed struct {
		cluster   *Cluster
		embedding []float64
	}
	var seeds []seed

	for _, img := range images {
		if img == nil || img.Evicted || img.Image == nil {
			continue
		}

		var joined *Cluster
		if len(img.Image.Embedding) > 0 {
			bestSim := 0.0
			for _, s := range seeds {
				if len(s.embedding) == 0 {
					continue
				}
				sim := CosineSimilarity(img.Image.Embedding, s.embedding)
				if sim >= threshold && (joined == nil || sim > bestSim) {
					joined = s.cluster
					bestSim = sim
				}
			}
		}

		if joined == nil {
			joined = &Cluster{ID: len(seeds) + 1}
			seeds = append(seeds, seed{cluster: joined, embedding: img.Image.Embedding})
		}
		joined.Members = append(joined.Members, img)
	}

	clusters := make([]*Cluster, 0, len(seeds))
	for _, s := range seeds {
		sortMembers(s.cluster)
		s.cluster.centroid = centroid(s.cluster.Members)
		clusters = append(clusters, s.cluster)
	}

	// Largest cluster first; founding order breaks ties.
	sort.SliceStable(clusters, func(i, j int) bool {
		return len(clusters[i].Members) > len(clusters[j].Members)
	})
	for rank, c := range clusters {
		c.ID = rank + 1
		for _, member := range c.Members {
			member.Group = c.ID
		}
	}
	return clusters
}

// sortMembers orders cluster members by descending pixel count, keeping
// insertion order among equals.
func sortMembers(c *Cluster) {
	sort.SliceStable(c.Members, func(i, j int) bool {
		return c.Members[i].PixelCount() > c.Members[j].PixelCount()
	})
}

func centroid(members []*model.Resource) []float64 {
	var sum []float64
	count := 0
	for _, m := range members {
		if m.Image == nil || len(m.Image.Embedding) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(m.Image.Embedding))
		}
		if len(m.Image.Embedding) != len(sum) {
			continue
		}
		for i, v := range m.Image.Embedding {
			sum[i] += v
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= float64(count)
	}
	return sum
}

// ScoreConsistency assigns each image a consistency score: the cosine
// similarity between its embedding and the centroid of the largest
// cluster. Images without an embedding score 0.
func ScoreConsistency(clusters []*Cluster) {
	if len(clusters) == 0 {
		return
	}
	reference := clusters[0].centroid

	for _, c := range clusters {
		for _, member := range c.Members {
			if member.Image == nil {
				continue
			}
			member.Image.Consistency = CosineSimilarity(member.Image.Embedding, reference)
		}
	}
}

// Representatives returns the displayable image set of a product: the
// highest-resolution member of each cluster, largest cluster first.
func Representatives(clusters []*Cluster) []*model.Resource {
	reps := make([]*model.Resource, 0, len(clusters))
	for _, c := range clusters {
		if rep := c.Representative(); rep != nil {
			reps = append(reps, rep)
		}
	}
	return reps
}

// ElectCover picks the product cover among the cluster representatives.
// A PRIMARY tagged representative with the largest pixel count wins; next
// comes the representative with the highest consistency score, then the
// first representative. No clusters at all yields the placeholder.
func ElectCover(clusters []*Cluster) string {
	reps := Representatives(clusters)
	if len(reps) == 0 {
		return PlaceholderCover
	}

	var primary *model.Resource
	for _, rep := range reps {
		if !rep.HasTag(model.TagPrimary) {
			continue
		}
		if primary == nil || rep.PixelCount() > primary.PixelCount() {
			primary = rep
		}
	}
	if primary != nil {
		return primary.URL
	}

	var best *model.Resource
	for _, rep := range reps {
		if rep.Image == nil {
			continue
		}
		if best == nil || rep.Image.Consistency > best.Image.Consistency {
			best = rep
		}
	}
	if best != nil {
		return best.URL
	}
	return reps[0].URL
}
