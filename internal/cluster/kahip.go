package cluster

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// KaffpaPartitioner shells out to the KaHIP kaffpa binary. Graphs cross the
// process boundary as METIS files and partitions come back as one block id
// per line.
type KaffpaPartitioner struct {
	Binary string
}

// NewKaffpa locates kaffpa on PATH. Absence is a configuration error: the
// binary has to be installed separately, retrying will not help.
func NewKaffpa() (*KaffpaPartitioner, error) {
	bin, err := exec.LookPath("kaffpa")
	if err != nil {
		return nil, &ErrPartitionerUnavailable{Reason: "kaffpa not found on PATH"}
	}
	return &KaffpaPartitioner{Binary: bin}, nil
}

func (p *KaffpaPartitioner) Partition(ctx context.Context, g *NeighborGraph, k int, cfg PartitionConfig) ([]int, error) {
	dir, err := os.MkdirTemp("", "kaffpa-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	graphPath := filepath.Join(dir, "graph.metis")
	outPath := filepath.Join(dir, "partition.txt")
	if err := writeMETIS(graphPath, g); err != nil {
		return nil, err
	}

	imbalance := cfg.Imbalance
	if imbalance <= 0 {
		imbalance = 3
	}
	args := []string{
		graphPath,
		"--k=" + strconv.Itoa(k),
		"--seed=" + strconv.FormatInt(cfg.Seed, 10),
		"--preconfiguration=strong",
		"--imbalance=" + strconv.Itoa(imbalance),
		"--output_filename=" + outPath,
	}
	if cfg.BalanceEdges {
		args = append(args, "--balance_edges")
	}

	cmd := exec.CommandContext(ctx, p.Binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("kaffpa failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return readPartition(outPath, g.NumNodes)
}

// writeMETIS writes the graph in METIS adjacency format with edge weights
// (format flag 001). Node ids are 1-based in the file.
func writeMETIS(path string, g *NeighborGraph) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%d %d 001\n", g.NumNodes, g.NumEdges)
	for v := 0; v < g.NumNodes; v++ {
		for idx := g.XAdj[v]; idx < g.XAdj[v+1]; idx++ {
			if idx > g.XAdj[v] {
				w.WriteByte(' ')
			}
			fmt.Fprintf(w, "%d %d", g.Adjncy[idx]+1, g.AdjWgt[idx])
		}
		w.WriteByte('\n')
	}
	return w.Flush()
}

func readPartition(path string, numNodes int) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	labels := make([]int, 0, numNodes)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		block, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("bad partition line %q: %w", line, err)
		}
		labels = append(labels, block)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(labels) != numNodes {
		return nil, fmt.Errorf("partition has %d entries, want %d", len(labels), numNodes)
	}
	return labels, nil
}
