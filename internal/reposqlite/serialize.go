package reposqlite

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/emverrors"
)

// serializeBranch renders b as the text format: one header line
// (bid, root_eid, predecessor-rev, predecessor-bid) followed by one line
// per element (eid, parent_eid, name, kind, then length-prefixed props
// and text). The serializer is a total function over any valid *Branch.
func serializeBranch(b *branch.Branch) string {
	var sb strings.Builder
	predRev, predBID := "-", "-"
	if p := b.Predecessor(); p != nil {
		predRev = strconv.FormatInt(int64(p.Rev), 10)
		predBID = string(p.BID)
	}
	fmt.Fprintf(&sb, "%s\t%d\t%s\t%s\n", b.BID(), b.RootEID(), predRev, predBID)

	tree := b.Tree()
	eids := tree.EIDs()
	sort.Slice(eids, func(i, j int) bool { return eids[i] < eids[j] })
	for _, eid := range eids {
		c, _ := tree.Get(eid)
		writeElementLine(&sb, eid, c)
	}
	return sb.String()
}

func writeElementLine(sb *strings.Builder, eid element.EID, c element.Content) {
	kind := kindTag(c.Payload.Kind)
	fmt.Fprintf(sb, "%d\t%d\t%s\t%s\t", eid, c.Parent, encodeField(c.Name), kind)
	writeLengthPrefixed(sb, serializeProps(c.Payload.Props))
	sb.WriteByte('\t')
	writeLengthPrefixed(sb, c.Payload.Text)
	sb.WriteByte('\n')
}

func kindTag(k element.PayloadKind) string {
	switch k {
	case element.KindFile:
		return "F"
	case element.KindDir:
		return "D"
	case element.KindSubbranchRoot:
		return "S"
	default:
		return "?"
	}
}

func encodeField(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func decodeField(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

func writeLengthPrefixed(sb *strings.Builder, b []byte) {
	fmt.Fprintf(sb, "%d:", len(b))
	sb.Write(b)
}

// serializeProps renders a props map as key=value pairs separated by
// \x00, itself length-prefixed by the caller. Keys are sorted so the
// serializer is deterministic for identical input.
func serializeProps(props map[string][]byte) []byte {
	if len(props) == 0 {
		return nil
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%s\x00", k, props[k])
	}
	return []byte(sb.String())
}

// parseBranch parses the text format produced by serializeBranch,
// returning emverrors.KindBadFormat on a malformed header or element
// line. Blank lines, prop pairs without '=' and bytes after an element's
// text field are skipped rather than rejected.
func parseBranch(text string) (id branch.ID, rootEID element.EID, predecessor *branch.RevBID, contents map[element.EID]element.Content, err error) {
	const op = "parse_branch"
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		return "", 0, nil, nil, emverrors.New(emverrors.KindBadFormat, op, "empty branch metadata")
	}
	header := strings.Split(scanner.Text(), "\t")
	if len(header) != 4 {
		return "", 0, nil, nil, emverrors.New(emverrors.KindBadFormat, op, "malformed header")
	}
	rootEIDNum, convErr := strconv.ParseInt(header[1], 10, 64)
	if convErr != nil {
		return "", 0, nil, nil, emverrors.Wrap(emverrors.KindBadFormat, op, "root_eid", convErr)
	}
	id = branch.ID(header[0])
	rootEID = element.EID(rootEIDNum)

	if header[2] != "-" && header[3] != "-" {
		predRevNum, convErr := strconv.ParseInt(header[2], 10, 64)
		if convErr != nil {
			return "", 0, nil, nil, emverrors.Wrap(emverrors.KindBadFormat, op, "predecessor_rev", convErr)
		}
		predecessor = &branch.RevBID{Rev: branch.RevNum(predRevNum), BID: branch.ID(header[3])}
	}

	contents = make(map[element.EID]element.Content)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		eid, c, lineErr := parseElementLine(line)
		if lineErr != nil {
			return "", 0, nil, nil, lineErr
		}
		contents[eid] = c
	}
	if err := scanner.Err(); err != nil {
		return "", 0, nil, nil, emverrors.Wrap(emverrors.KindBadFormat, op, "scan", err)
	}
	return id, rootEID, predecessor, contents, nil
}

func parseElementLine(line string) (element.EID, element.Content, error) {
	const op = "parse_element"
	fields := strings.SplitN(line, "\t", 5)
	if len(fields) != 5 {
		return 0, element.Content{}, emverrors.New(emverrors.KindBadFormat, op, "expected 5 fields")
	}
	eidNum, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, element.Content{}, emverrors.Wrap(emverrors.KindBadFormat, op, "eid", err)
	}
	parentNum, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, element.Content{}, emverrors.Wrap(emverrors.KindBadFormat, op, "parent_eid", err)
	}
	name := decodeField(fields[2])
	kind := fields[3]

	rest := fields[4]
	propsBytes, rest, err := readLengthPrefixed(rest)
	if err != nil {
		return 0, element.Content{}, emverrors.Wrap(emverrors.KindBadFormat, op, "props", err)
	}
	if len(rest) == 0 || rest[0] != '\t' {
		return 0, element.Content{}, emverrors.New(emverrors.KindBadFormat, op, "missing text separator")
	}
	textBytes, _, err := readLengthPrefixed(rest[1:])
	if err != nil {
		return 0, element.Content{}, emverrors.Wrap(emverrors.KindBadFormat, op, "text", err)
	}

	props := parseProps(propsBytes)
	var payload element.Payload
	switch kind {
	case "F":
		payload = element.NewFilePayload(props, textBytes)
	case "D":
		payload = element.NewDirPayload(props)
	case "S":
		payload = element.NewSubbranchRootPayload()
	default:
		return 0, element.Content{}, emverrors.New(emverrors.KindBadFormat, op, "unknown payload kind: "+kind)
	}
	return element.EID(eidNum), element.Content{Parent: element.EID(parentNum), Name: name, Payload: payload}, nil
}

func readLengthPrefixed(s string) (data []byte, rest string, err error) {
	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		return nil, "", fmt.Errorf("missing length prefix")
	}
	n, err := strconv.Atoi(s[:colon])
	if err != nil {
		return nil, "", fmt.Errorf("bad length prefix: %w", err)
	}
	body := s[colon+1:]
	if len(body) < n {
		return nil, "", fmt.Errorf("length prefix %d exceeds remaining input", n)
	}
	return []byte(body[:n]), body[n:], nil
}

func parseProps(b []byte) map[string][]byte {
	if len(b) == 0 {
		return nil
	}
	out := make(map[string][]byte)
	for _, pair := range strings.Split(string(b), "\x00") {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[kv[0]] = []byte(kv[1])
	}
	return out
}
