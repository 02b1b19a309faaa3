package boards

import (
	"encoding/json"
	"maps"
	"slices"
	"sort"
	"sync"
)

// ItemType discriminates the variants of a BoardListItem.
type ItemType string

const (
	// ItemTypePort is a port without a detected or remembered board.
	ItemTypePort ItemType = "port"
	// ItemTypeDetected is a port paired with a board found by discovery.
	ItemTypeDetected ItemType = "detected"
	// ItemTypeBoardSelect is a port without detected boards for which the
	// user picked a board earlier.
	ItemTypeBoardSelect ItemType = "board-select"
	// ItemTypeBoardOverridden is a detected board the user replaced with
	// another one for this port.
	ItemTypeBoardOverridden ItemType = "board-overridden"
)

// BoardListItem is one row of a BoardList.
//
//	port               Board == nil, InferredBoard == nil
//	detected           Board != nil, InferredBoard == nil
//	board-select       Board == nil, InferredBoard != nil
//	board-overridden   Board != nil, InferredBoard != nil, not equal
type BoardListItem struct {
	Type          ItemType         `json:"type"`
	Port          Port             `json:"port"`
	Board         *BoardIdentifier `json:"board,omitempty"`
	InferredBoard *BoardIdentifier `json:"inferred_board,omitempty"`
}

// IsInferred reports whether the item carries a board from history.
func (i BoardListItem) IsInferred() bool {
	return i.Type == ItemTypeBoardSelect || i.Type == ItemTypeBoardOverridden
}

// EffectiveBoard returns the detected board, or the inferred one if none was
// detected.
func (i BoardListItem) EffectiveBoard() *BoardIdentifier {
	if i.Board != nil {
		return i.Board
	}
	return i.InferredBoard
}

func newItem(port Port, board, inferred *BoardIdentifier) BoardListItem {
	item := BoardListItem{Port: port, Board: board, InferredBoard: inferred}
	switch {
	case board == nil && inferred == nil:
		item.Type = ItemTypePort
	case inferred == nil:
		item.Type = ItemTypeDetected
	case board == nil:
		item.Type = ItemTypeBoardSelect
	default:
		item.Type = ItemTypeBoardOverridden
	}
	return item
}

// PortsView is a deduplicated list of detected ports together with the
// position of the selected port in it (-1 if absent).
type PortsView struct {
	Ports         []DetectedPort `json:"ports"`
	MatchingIndex int            `json:"matching_index"`
}

// BoardList is the reconciled, immutable view over detected ports, the board
// selection and the board list history. Derived views are computed on first
// use and cached; a BoardList is safe for concurrent use.
type BoardList struct {
	items    []BoardListItem
	config   BoardsConfig
	detected DetectedPorts
	history  BoardListHistory

	selectedOnce  sync.Once
	selectedIndex int

	boardsOnce sync.Once
	boards     []BoardListItem

	portsOnce sync.Once
	ports     []DetectedPort
}

// CreateBoardList builds the board list for a discovery snapshot. The inputs
// are not modified. A zero BoardsConfig and a nil history are valid.
func CreateBoardList(detected DetectedPorts, config BoardsConfig, history BoardListHistory) *BoardList {
	// Go maps are unordered; visiting the keys in order keeps the stable sort
	// below deterministic for items the comparator considers equal.
	keys := slices.Sorted(maps.Keys(detected))

	items := make([]BoardListItem, 0, len(detected))
	for _, key := range keys {
		dp := detected[key]
		var inferred *BoardIdentifier
		if h, ok := history[dp.Port.Key()]; ok {
			inferred = &h
		}

		if len(dp.Boards) == 0 {
			items = append(items, newItem(dp.Port, nil, inferred))
			continue
		}

		for _, candidate := range dp.Boards {
			board := &BoardIdentifier{Name: candidate.Name, FQBN: candidate.FQBN}
			if inferred != nil && !BoardIdentifierEquals(inferred, board) {
				items = append(items, newItem(dp.Port, board, inferred))
			} else {
				items = append(items, newItem(dp.Port, board, nil))
			}
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return CompareBoardListItems(items[i], items[j]) < 0
	})

	return &BoardList{
		items:    items,
		config:   config,
		detected: maps.Clone(detected),
		history:  maps.Clone(history),
	}
}

// Len returns the number of items.
func (l *BoardList) Len() int {
	return len(l.items)
}

// Item returns the item at index i.
func (l *BoardList) Item(i int) BoardListItem {
	return l.items[i]
}

// Items returns a copy of the sorted items.
func (l *BoardList) Items() []BoardListItem {
	return slices.Clone(l.items)
}

// BoardsConfig returns the selection the list was built with.
func (l *BoardList) BoardsConfig() BoardsConfig {
	return l.config
}

// DetectedPorts returns a copy of the snapshot the list was built from.
func (l *BoardList) DetectedPorts() DetectedPorts {
	return maps.Clone(l.detected)
}

// SelectedIndex returns the index of the item the BoardsConfig refers to, or
// -1. An item whose detected board matches wins over one whose inferred board
// matches; among inferred matches the first in list order wins.
func (l *BoardList) SelectedIndex() int {
	l.selectedOnce.Do(func() {
		l.selectedIndex = l.findSelectedIndex()
	})
	return l.selectedIndex
}

func (l *BoardList) findSelectedIndex() int {
	if !l.config.IsDefined() {
		return -1
	}
	selectedKey := l.config.SelectedPort.Key()

	for i, item := range l.items {
		if item.Port.Key() == selectedKey && item.Board != nil &&
			BoardIdentifierEquals(item.Board, l.config.SelectedBoard) {
			return i
		}
	}
	for i, item := range l.items {
		if item.IsInferred() && item.Port.Key() == selectedKey &&
			BoardIdentifierEquals(item.InferredBoard, l.config.SelectedBoard) {
			return i
		}
	}
	return -1
}

// Boards returns the items usable in a board picker: every inferred item and
// every item with a detected, installed (FQBN-bearing) board.
func (l *BoardList) Boards() []BoardListItem {
	l.boardsOnce.Do(func() {
		boards := make([]BoardListItem, 0, len(l.items))
		for _, item := range l.items {
			if item.IsInferred() || (item.Board != nil && item.Board.HasFQBN()) {
				boards = append(boards, item)
			}
		}
		l.boards = boards
	})
	return slices.Clone(l.boards)
}

// Ports returns the detected ports in the order of their first item,
// optionally filtered. The values are the original detected port records.
func (l *BoardList) Ports(predicate func(DetectedPort) bool) PortsView {
	base := l.basePorts()
	filtered := make([]DetectedPort, 0, len(base))
	for _, dp := range base {
		if predicate == nil || predicate(dp) {
			filtered = append(filtered, dp)
		}
	}
	return PortsView{Ports: filtered, MatchingIndex: l.matchingIndex(filtered)}
}

// PortsGroupedByProtocol buckets the unfiltered ports by protocol. Only the
// bucket holding the selected port has a MatchingIndex other than -1.
func (l *BoardList) PortsGroupedByProtocol() map[string]PortsView {
	groups := make(map[string]PortsView)
	for _, dp := range l.basePorts() {
		group := groups[dp.Port.Protocol]
		group.Ports = append(group.Ports, dp)
		groups[dp.Port.Protocol] = group
	}
	for protocol, group := range groups {
		group.MatchingIndex = l.matchingIndex(group.Ports)
		groups[protocol] = group
	}
	return groups
}

func (l *BoardList) basePorts() []DetectedPort {
	l.portsOnce.Do(func() {
		seen := make(map[string]struct{}, len(l.detected))
		ports := make([]DetectedPort, 0, len(l.detected))
		for _, item := range l.items {
			key := item.Port.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			if dp, ok := l.detected[key]; ok {
				ports = append(ports, dp)
			}
		}
		l.ports = ports
	})
	return l.ports
}

func (l *BoardList) matchingIndex(ports []DetectedPort) int {
	if l.config.SelectedPort == nil {
		return -1
	}
	plain := make([]Port, len(ports))
	for i, dp := range ports {
		plain[i] = dp.Port
	}
	return FindMatchingPortIndex(l.config.SelectedPort, plain)
}

// MarshalJSON encodes the items, the selection and the selected index.
func (l *BoardList) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Items         []BoardListItem `json:"items"`
		BoardsConfig  BoardsConfig    `json:"boards_config"`
		SelectedIndex int             `json:"selected_index"`
	}{
		Items:         l.items,
		BoardsConfig:  l.config,
		SelectedIndex: l.SelectedIndex(),
	})
}

// String dumps the inputs and the result as indented JSON for diagnostics.
func (l *BoardList) String() string {
	data, err := json.MarshalIndent(struct {
		DetectedPorts    DetectedPorts    `json:"detected_ports"`
		BoardsConfig     BoardsConfig     `json:"boards_config"`
		Items            []BoardListItem  `json:"items"`
		SelectedIndex    int              `json:"selected_index"`
		BoardListHistory BoardListHistory `json:"board_list_history"`
	}{
		DetectedPorts:    l.detected,
		BoardsConfig:     l.config,
		Items:            l.items,
		SelectedIndex:    l.SelectedIndex(),
		BoardListHistory: l.history,
	}, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(data)
}
