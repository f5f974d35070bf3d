package parallel

import "fmt"

// PartitionMap splits the index range [0, MaxIndex) into ParallelDegree
// contiguous buckets. Bucket n is owned by rank n.
type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree < 1 {
		panic(fmt.Errorf("parallel degree must be positive, have %d", ParallelDegree))
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

// NewPartitionMapFromCounts builds a map where bucket n holds counts[n]
// consecutive indices. Empty buckets are allowed.
func NewPartitionMapFromCounts(counts []int) (pm *PartitionMap) {
	if len(counts) < 1 {
		panic(fmt.Errorf("partition map needs at least one bucket"))
	}
	pm = &PartitionMap{
		ParallelDegree: len(counts),
		Partitions:     make([][2]int, len(counts)),
	}
	for n, count := range counts {
		if count < 0 {
			panic(fmt.Errorf("negative count %d for bucket %d", count, n))
		}
		pm.Partitions[n] = [2]int{pm.MaxIndex, pm.MaxIndex + count}
		pm.MaxIndex += count
	}
	return
}

// Scale returns a map whose buckets are factor times wider, used for layouts
// that store several values per index
func (pm *PartitionMap) Scale(factor int) (scaled *PartitionMap) {
	counts := make([]int, pm.ParallelDegree)
	for n := range counts {
		counts[n] = factor * pm.GetBucketDimension(n)
	}
	scaled = NewPartitionMapFromCounts(counts)
	return
}

// GetBucket returns bucketNum == -1 for an index outside the map
func (pm *PartitionMap) GetBucket(kDim int) (bucketNum, min, max int) {
	_, bucketNum, min, max = pm.getBucketWithTryCount(kDim)
	return
}

func (pm *PartitionMap) getBucketWithTryCount(kDim int) (tryCount, bucketNum, min, max int) {
	if kDim < 0 || kDim >= pm.MaxIndex {
		return 0, -1, 0, 0
	}
	// Initial guess
	bucketNum = int(float64(pm.ParallelDegree*kDim) / float64(pm.MaxIndex))
	if bucketNum >= pm.ParallelDegree {
		bucketNum = pm.ParallelDegree - 1
	}
	for !(pm.Partitions[bucketNum][0] <= kDim && pm.Partitions[bucketNum][1] > kDim) {
		if pm.Partitions[bucketNum][0] > kDim {
			bucketNum--
		} else {
			bucketNum++
		}
		if bucketNum == -1 || bucketNum == pm.ParallelDegree {
			return 0, -1, 0, 0
		}
		tryCount++
	}
	min, max = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

// GetLocalK maps a global index onto its bucket and the offset inside that
// bucket, bn is -1 for an index outside the map
func (pm *PartitionMap) GetLocalK(k int) (kLocal, bn int) {
	var kMin int
	if bn, kMin, _ = pm.GetBucket(k); bn != -1 {
		kLocal = k - kMin
	}
	return
}

func (pm *PartitionMap) GetGlobalK(kLocal, bn int) int { return pm.Partitions[bn][0] + kLocal }

func (pm *PartitionMap) GetBucketDimension(bn int) (kMax int) {
	if bn == -1 {
		kMax = pm.MaxIndex
		return
	}
	var (
		k1, k2 = pm.GetBucketRange(bn)
	)
	kMax = k2 - k1
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// This routine splits one dimension into c.ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}
