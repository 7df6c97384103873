// Package pathways reconstructs per-station pathway graphs from the
// pathways table: walkable edges between platforms, entrances and nodes
// inside one station.
package pathways

import (
	"context"
	"errors"
	"iter"

	"github.com/rs/zerolog/log"

	"github.com/gtfskit/gtfskit/pkg/feed"
	"github.com/gtfskit/gtfskit/pkg/gtfs"
	"github.com/gtfskit/gtfskit/pkg/stops"
	"github.com/gtfskit/gtfskit/pkg/store"
)

const bidirectional = "1"

// Edge is one traversal of a pathway towards To.
type Edge struct {
	Pathway gtfs.Pathway
	To      *Node
}

// Node is one stop inside a station graph. ConnectedTo maps a reachable
// stop ID to the edges leading there, keyed by pathway ID; a bidirectional
// pathway contributes an edge in both directions.
type Node struct {
	ID          string
	ConnectedTo map[string]map[string]Edge
}

// StationGraph is the connected pathway graph of one station. Start is the
// node the graph traversal entered through.
type StationGraph struct {
	StationID string
	Start     *Node
	Nodes     map[string]*Node
}

type traversal struct {
	pathwayID string
	reverse   bool
}

// Read yields one StationGraph per station that has pathways. Rows without a
// pathway ID or with missing or identical endpoints are dropped.
func Read(ctx context.Context, rd feed.Reader, filters feed.Filters) iter.Seq2[StationGraph, error] {
	filters = filters.WithDefaults()

	return func(yield func(StationGraph, error) bool) {
		fail := func(err error) {
			yield(StationGraph{}, err)
		}

		stations := store.NewMemory[string]()
		if err := stops.ReadStations(ctx, rd, filters, stations); err != nil {
			fail(err)
			return
		}
		stationOf := func(stopID string) (string, error) {
			station, ok, err := stations.Get(ctx, stopID)
			if err != nil {
				return "", err
			}
			if !ok {
				return stopID, nil
			}
			return station, nil
		}

		var ordered []gtfs.Pathway
		byID := map[string]gtfs.Pathway{}
		byFrom := map[string][]string{}
		for pw, err := range rd.Pathways() {
			if err != nil {
				if errors.Is(err, feed.ErrNotFound) {
					break // no pathways table, treat as empty
				}
				fail(err)
				return
			}
			if !filters.Pathway(pw) {
				continue
			}
			if pw.ID == "" || pw.FromStopID == "" || pw.ToStopID == "" || pw.FromStopID == pw.ToStopID {
				log.Debug().
					Str("pathway", pw.ID).
					Msg("Skipping invalid pathways row")
				continue
			}
			ordered = append(ordered, pw)
			byID[pw.ID] = pw
			byFrom[pw.FromStopID] = append(byFrom[pw.FromStopID], pw.ID)
		}

		buildGraph := func(initial traversal, stationID string) (map[string]*Node, error) {
			nodes := map[string]*Node{}
			seen := map[string]bool{}
			queued := map[string]bool{initial.pathwayID: true}
			queue := []traversal{initial}

			node := func(id string) *Node {
				n, ok := nodes[id]
				if !ok {
					n = &Node{ID: id, ConnectedTo: map[string]map[string]Edge{}}
					nodes[id] = n
				}
				return n
			}
			link := func(from, to *Node, pw gtfs.Pathway) {
				edges, ok := from.ConnectedTo[to.ID]
				if !ok {
					edges = map[string]Edge{}
					from.ConnectedTo[to.ID] = edges
				}
				if _, ok := edges[pw.ID]; !ok {
					edges[pw.ID] = Edge{Pathway: pw, To: to}
				}
			}

			for len(queue) > 0 {
				t := queue[0]
				queue = queue[1:]
				if seen[t.pathwayID] {
					continue
				}
				seen[t.pathwayID] = true

				pw := byID[t.pathwayID]
				fromNode := node(pw.FromStopID)
				toNode := node(pw.ToStopID)
				link(fromNode, toNode, pw)
				if pw.IsBidirectional == bidirectional {
					link(toNode, fromNode, pw)
				}

				connectedStop := pw.ToStopID
				if t.reverse {
					connectedStop = pw.FromStopID
				}
				connectedStation, err := stationOf(connectedStop)
				if err != nil {
					return nil, err
				}
				if connectedStation != stationID {
					continue
				}
				for _, pwID := range byFrom[connectedStop] {
					if seen[pwID] || queued[pwID] {
						continue
					}
					queued[pwID] = true
					queue = append(queue, traversal{pathwayID: pwID})
				}
			}
			return nodes, nil
		}

		// One graph per station, entered through the first pathway touching
		// it. A bidirectional pathway may also reach a second station via its
		// far end.
		covered := map[string]bool{}
		for _, pw := range ordered {
			stationID, err := stationOf(pw.FromStopID)
			if err != nil {
				fail(err)
				return
			}
			if !covered[stationID] {
				covered[stationID] = true
				nodes, err := buildGraph(traversal{pathwayID: pw.ID}, stationID)
				if err != nil {
					fail(err)
					return
				}
				graph := StationGraph{StationID: stationID, Start: nodes[pw.FromStopID], Nodes: nodes}
				if !yield(graph, nil) {
					return
				}
			}

			if pw.IsBidirectional != bidirectional {
				continue
			}
			stationID, err = stationOf(pw.ToStopID)
			if err != nil {
				fail(err)
				return
			}
			if covered[stationID] {
				continue
			}
			covered[stationID] = true
			nodes, err := buildGraph(traversal{pathwayID: pw.ID, reverse: true}, stationID)
			if err != nil {
				fail(err)
				return
			}
			graph := StationGraph{StationID: stationID, Start: nodes[pw.ToStopID], Nodes: nodes}
			if !yield(graph, nil) {
				return
			}
		}
	}
}
