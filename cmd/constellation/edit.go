package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"constellation/internal/document"
	"constellation/internal/graph"
	"constellation/internal/model"
	"constellation/internal/timeline"
	"constellation/internal/workingstore"
)

var showCmd = &cobra.Command{
	Use:     "show",
	Short:   "Show the current state's actors, relations and groups",
	GroupID: groupEdit,
	Args:    cobra.NoArgs,
	RunE:    runShow,
}

var actorCmd = &cobra.Command{
	Use:     "actor",
	Short:   "Actor commands",
	GroupID: groupEdit,
}

var actorAddCmd = &cobra.Command{
	Use:   "add <label>",
	Short: "Add an actor to the current state",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runActorAdd,
}

var actorUpdateCmd = &cobra.Command{
	Use:   "update <actor>",
	Short: "Edit an actor",
	Args:  cobra.ExactArgs(1),
	RunE:  runActorUpdate,
}

var actorRmCmd = &cobra.Command{
	Use:   "rm <actor>",
	Short: "Delete an actor and its relations",
	Args:  cobra.ExactArgs(1),
	RunE:  runActorRm,
}

var actorMoveCmd = &cobra.Command{
	Use:   "move <actor> <x> <y>",
	Short: "Move an actor; quick successive moves undo as one step",
	Args:  cobra.ExactArgs(3),
	RunE:  runActorMove,
}

var relationCmd = &cobra.Command{
	Use:     "relation",
	Aliases: []string{"rel"},
	Short:   "Relation commands",
	GroupID: groupEdit,
}

var relationAddCmd = &cobra.Command{
	Use:   "add <source> <target>",
	Short: "Connect two actors",
	Args:  cobra.ExactArgs(2),
	RunE:  runRelationAdd,
}

var relationUpdateCmd = &cobra.Command{
	Use:   "update <relation>",
	Short: "Edit a relation",
	Args:  cobra.ExactArgs(1),
	RunE:  runRelationUpdate,
}

var relationRmCmd = &cobra.Command{
	Use:   "rm <relation>",
	Short: "Delete a relation",
	Args:  cobra.ExactArgs(1),
	RunE:  runRelationRm,
}

var groupCmd = &cobra.Command{
	Use:     "group",
	Short:   "Group commands",
	GroupID: groupEdit,
}

var groupAddCmd = &cobra.Command{
	Use:   "add <label> <actor>...",
	Short: "Group actors",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runGroupAdd,
}

var groupRmCmd = &cobra.Command{
	Use:   "rm <group>",
	Short: "Delete a group, keeping its actors",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupRm,
}

var typeCmd = &cobra.Command{
	Use:     "type",
	Short:   "Actor and relation type commands",
	GroupID: groupEdit,
}

var typeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List actor and relation types",
	Args:  cobra.NoArgs,
	RunE:  runTypeList,
}

var typeAddCmd = &cobra.Command{
	Use:       "add <node|edge> <id> <label>",
	Short:     "Add an actor (node) or relation (edge) type",
	Args:      cobra.ExactArgs(3),
	ValidArgs: []string{"node", "edge"},
	RunE:      runTypeAdd,
}

var typeUpdateCmd = &cobra.Command{
	Use:   "update <node|edge> <id>",
	Short: "Edit a type",
	Args:  cobra.ExactArgs(2),
	RunE:  runTypeUpdate,
}

var typeRmCmd = &cobra.Command{
	Use:   "rm <node|edge> <id>",
	Short: "Delete an unused type",
	Args:  cobra.ExactArgs(2),
	RunE:  runTypeRm,
}

var labelCmd = &cobra.Command{
	Use:     "label",
	Short:   "Label commands",
	GroupID: groupEdit,
}

var labelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List labels",
	Args:  cobra.NoArgs,
	RunE:  runLabelList,
}

var labelAddCmd = &cobra.Command{
	Use:   "add <id> <name>",
	Short: "Add a label",
	Args:  cobra.ExactArgs(2),
	RunE:  runLabelAdd,
}

var labelUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a label",
	Args:  cobra.ExactArgs(1),
	RunE:  runLabelUpdate,
}

var labelRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a label and strip it from every state",
	Args:  cobra.ExactArgs(1),
	RunE:  runLabelRm,
}

var tangibleCmd = &cobra.Command{
	Use:     "tangible",
	Short:   "Tangible (physical control) commands",
	GroupID: groupEdit,
}

var tangibleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tangibles",
	Args:  cobra.NoArgs,
	RunE:  runTangibleList,
}

var tangibleAddCmd = &cobra.Command{
	Use:   "add <id> <name>",
	Short: "Add a tangible",
	Long: `Add a tangible. Filter tangibles select labels or types; state
tangibles jump to a timeline state.

Examples:
  constellation tangible add t1 "Red block" --mode filter --labels lbl_a,lbl_b
  constellation tangible add t2 "Dial" --mode state --state baseline`,
	Args: cobra.ExactArgs(2),
	RunE: runTangibleAdd,
}

var tangibleRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a tangible",
	Args:  cobra.ExactArgs(1),
	RunE:  runTangibleRm,
}

var refCmd = &cobra.Command{
	Use:     "ref",
	Short:   "Bibliography commands",
	GroupID: groupEdit,
}

var refListCmd = &cobra.Command{
	Use:   "list",
	Short: "List references and where they are cited",
	Args:  cobra.NoArgs,
	RunE:  runRefList,
}

var refSetCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Add or replace a reference",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefSet,
}

var refRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a reference and its citations",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefRm,
}

var (
	elemID          string
	elemType        string
	elemLabel       string
	elemDescription string
	elemColor       string
	elemLabels      []string
	elemAt          []float64
	relDirection    string
	relStrength     int
	typeShape       string
	typeStyle       string
	labelScope      string
	tangibleMode    string
	tangibleState   string
	tangibleHW      string
	tangibleCombine string
	tangibleTypes   []string
	refTitle        string
)

func init() {
	for _, c := range []*cobra.Command{actorAddCmd, relationAddCmd, groupAddCmd} {
		c.Flags().StringVar(&elemID, "id", "", "Element id (default: generated)")
	}
	for _, c := range []*cobra.Command{actorAddCmd, actorUpdateCmd, relationAddCmd, relationUpdateCmd} {
		c.Flags().StringVarP(&elemType, "type", "t", "", "Type id")
		c.Flags().StringSliceVar(&elemLabels, "labels", nil, "Label ids")
	}
	for _, c := range []*cobra.Command{actorUpdateCmd, relationAddCmd, relationUpdateCmd, typeUpdateCmd, labelUpdateCmd} {
		c.Flags().StringVar(&elemLabel, "label", "", "Display label")
	}
	for _, c := range []*cobra.Command{actorAddCmd, actorUpdateCmd, groupAddCmd, typeAddCmd, typeUpdateCmd, labelAddCmd, labelUpdateCmd, tangibleAddCmd} {
		c.Flags().StringVarP(&elemDescription, "description", "d", "", "Description")
	}
	for _, c := range []*cobra.Command{groupAddCmd, typeAddCmd, typeUpdateCmd, labelAddCmd, labelUpdateCmd} {
		c.Flags().StringVar(&elemColor, "color", "", "Colour, e.g. #3b82f6")
	}
	actorAddCmd.Flags().Float64SliceVar(&elemAt, "at", []float64{0, 0}, "Position x,y")
	for _, c := range []*cobra.Command{relationAddCmd, relationUpdateCmd, typeAddCmd, typeUpdateCmd} {
		c.Flags().StringVar(&relDirection, "direction", "", "directed, bidirectional or undirected")
	}
	for _, c := range []*cobra.Command{relationAddCmd, relationUpdateCmd} {
		c.Flags().IntVar(&relStrength, "strength", 0, "Strength 1-5")
	}
	for _, c := range []*cobra.Command{typeAddCmd, typeUpdateCmd} {
		c.Flags().StringVar(&typeShape, "shape", "", "Actor shape")
		c.Flags().StringVar(&typeStyle, "style", "", "Relation line style")
	}
	for _, c := range []*cobra.Command{labelAddCmd, labelUpdateCmd} {
		c.Flags().StringVar(&labelScope, "scope", "", "actors, relations or both")
	}
	tangibleAddCmd.Flags().StringVar(&tangibleMode, "mode", string(model.TangibleFilter), "filter, state or stateDial")
	tangibleAddCmd.Flags().StringVar(&tangibleState, "state", "", "State to show (state modes)")
	tangibleAddCmd.Flags().StringVar(&tangibleHW, "hardware-id", "", "Hardware identifier")
	tangibleAddCmd.Flags().StringVar(&tangibleCombine, "combine", "", "OR or AND (filter mode)")
	tangibleAddCmd.Flags().StringSliceVar(&elemLabels, "labels", nil, "Label ids to filter by")
	tangibleAddCmd.Flags().StringSliceVar(&tangibleTypes, "actor-types", nil, "Actor type ids to filter by")
	refSetCmd.Flags().StringVarP(&elemType, "type", "t", "article", "Reference type")
	refSetCmd.Flags().StringVar(&refTitle, "title", "", "Title")

	actorCmd.AddCommand(actorAddCmd, actorUpdateCmd, actorRmCmd, actorMoveCmd)
	relationCmd.AddCommand(relationAddCmd, relationUpdateCmd, relationRmCmd)
	groupCmd.AddCommand(groupAddCmd, groupRmCmd)
	typeCmd.AddCommand(typeListCmd, typeAddCmd, typeUpdateCmd, typeRmCmd)
	labelCmd.AddCommand(labelListCmd, labelAddCmd, labelUpdateCmd, labelRmCmd)
	tangibleCmd.AddCommand(tangibleListCmd, tangibleAddCmd, tangibleRmCmd)
	refCmd.AddCommand(refListCmd, refSetCmd, refRmCmd)
	rootCmd.AddCommand(showCmd, actorCmd, relationCmd, groupCmd, typeCmd, labelCmd, tangibleCmd, refCmd)
}

func newElementID(prefix string) string {
	if elemID != "" {
		return elemID
	}
	return prefix + "_" + strings.ToLower(ulid.Make().String())
}

// workingView is a copy of what the editor shows for the active document.
type workingView struct {
	Graph      graph.Snapshot
	Catalogs   workingstore.Catalogs
	References []model.Reference
	Citations  map[string][]model.Citation
}

func current() (workingView, error) {
	var v workingView
	ok := false
	sess.ws.View(func(docs *document.Store, _ *timeline.Engine, working *workingstore.Store) {
		id := docs.Active()
		if id == "" {
			return
		}
		ok = true
		v.Graph = working.Graph().Clone()
		v.Catalogs = working.Catalogs().Clone()
		v.References = docs.References(id)
		v.Citations = docs.Citations(id)
	})
	if !ok {
		return v, fmt.Errorf("no document is open")
	}
	return v, nil
}

type candidate struct{ id, label string }

// match resolves ref against candidates by id, short id, unique id prefix
// or exact label.
func match(kind, ref string, cands []candidate) (string, error) {
	var byPrefix, byLabel []string
	for _, c := range cands {
		switch {
		case c.id == ref || shortID(c.id) == ref:
			return c.id, nil
		case strings.HasPrefix(c.id, ref):
			byPrefix = append(byPrefix, c.id)
		}
		if c.label == ref {
			byLabel = append(byLabel, c.id)
		}
	}
	for _, ids := range [][]string{byPrefix, byLabel} {
		switch len(ids) {
		case 0:
		case 1:
			return ids[0], nil
		default:
			return "", fmt.Errorf("%q is ambiguous: %d %ss match", ref, len(ids), kind)
		}
	}
	return "", fmt.Errorf("no %s matches %q", kind, ref)
}

func resolveActor(ref string) (string, error) {
	v, err := current()
	if err != nil {
		return "", err
	}
	cands := make([]candidate, len(v.Graph.Nodes))
	for i, a := range v.Graph.Nodes {
		cands[i] = candidate{a.ID, a.Data.Label}
	}
	return match("actor", ref, cands)
}

func resolveRelation(ref string) (string, error) {
	v, err := current()
	if err != nil {
		return "", err
	}
	cands := make([]candidate, len(v.Graph.Edges))
	for i, r := range v.Graph.Edges {
		cands[i] = candidate{r.ID, r.Data.Label}
	}
	return match("relation", ref, cands)
}

func resolveGroup(ref string) (string, error) {
	v, err := current()
	if err != nil {
		return "", err
	}
	cands := make([]candidate, len(v.Graph.Groups))
	for i, g := range v.Graph.Groups {
		cands[i] = candidate{g.ID, g.Data.Label}
	}
	return match("group", ref, cands)
}

func runShow(cmd *cobra.Command, args []string) error {
	v, err := current()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, v.Graph.Normalize())
	}
	labels := make(map[string]string, len(v.Graph.Nodes))
	for _, a := range v.Graph.Nodes {
		labels[a.ID] = a.Data.Label
	}
	fmt.Fprintf(out, "Actors (%d):\n", len(v.Graph.Nodes))
	for _, a := range v.Graph.Nodes {
		fmt.Fprintf(out, "  %-20s  %-12s  %-24s  (%g, %g)%s\n", shortID(a.ID), a.Data.Type, a.Data.Label,
			a.Position.X, a.Position.Y, tagList(a.Data.Labels))
	}
	fmt.Fprintf(out, "Relations (%d):\n", len(v.Graph.Edges))
	for _, r := range v.Graph.Edges {
		fmt.Fprintf(out, "  %-20s  %-12s  %s → %s%s\n", shortID(r.ID), r.Data.Type,
			labels[r.Source], labels[r.Target], tagList(r.Data.Labels))
	}
	if len(v.Graph.Groups) > 0 {
		fmt.Fprintf(out, "Groups (%d):\n", len(v.Graph.Groups))
		for _, g := range v.Graph.Groups {
			fmt.Fprintf(out, "  %-20s  %-24s  %d actor(s)\n", shortID(g.ID), g.Data.Label, len(g.Data.ActorIDs))
		}
	}
	return nil
}

func tagList(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return "  [" + strings.Join(ids, ", ") + "]"
}

func runActorAdd(cmd *cobra.Command, args []string) error {
	if len(elemAt) != 2 {
		return fmt.Errorf("--at wants x,y")
	}
	typ := elemType
	if typ == "" {
		v, err := current()
		if err != nil {
			return err
		}
		if len(v.Catalogs.NodeTypes) == 0 {
			return fmt.Errorf("document has no actor types: add one or pass --type")
		}
		typ = v.Catalogs.NodeTypes[0].ID
	}
	a := graph.Actor{
		ID:       newElementID("actor"),
		Position: graph.Position{X: elemAt[0], Y: elemAt[1]},
		Data: graph.ActorData{
			Type:        typ,
			Label:       strings.Join(args, " "),
			Description: elemDescription,
			Labels:      elemLabels,
		},
	}
	if err := sess.ws.AddActor(a); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", shortID(a.ID))
	return nil
}

func runActorUpdate(cmd *cobra.Command, args []string) error {
	id, err := resolveActor(args[0])
	if err != nil {
		return err
	}
	f := cmd.Flags()
	return sess.ws.UpdateActor(id, func(a *graph.Actor) {
		if f.Changed("label") {
			a.Data.Label = elemLabel
		}
		if f.Changed("type") {
			a.Data.Type = elemType
		}
		if f.Changed("description") {
			a.Data.Description = elemDescription
		}
		if f.Changed("labels") {
			a.Data.Labels = elemLabels
		}
	})
}

func runActorRm(cmd *cobra.Command, args []string) error {
	id, err := resolveActor(args[0])
	if err != nil {
		return err
	}
	return sess.ws.RemoveActor(id)
}

func runActorMove(cmd *cobra.Command, args []string) error {
	id, err := resolveActor(args[0])
	if err != nil {
		return err
	}
	x, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid x %q", args[1])
	}
	y, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid y %q", args[2])
	}
	return sess.ws.MoveActor(id, graph.Position{X: x, Y: y})
}

func runRelationAdd(cmd *cobra.Command, args []string) error {
	src, err := resolveActor(args[0])
	if err != nil {
		return err
	}
	dst, err := resolveActor(args[1])
	if err != nil {
		return err
	}
	v, err := current()
	if err != nil {
		return err
	}
	typ := elemType
	if typ == "" {
		if len(v.Catalogs.EdgeTypes) == 0 {
			return fmt.Errorf("document has no relation types: add one or pass --type")
		}
		typ = v.Catalogs.EdgeTypes[0].ID
	}
	dir := graph.Directionality(relDirection)
	if dir == "" {
		for _, et := range v.Catalogs.EdgeTypes {
			if et.ID == typ {
				dir = et.DefaultDirectionality
			}
		}
	}
	r := graph.Relation{
		ID:     newElementID("rel"),
		Source: src,
		Target: dst,
		Data: graph.RelationData{
			Type:           typ,
			Label:          elemLabel,
			Directionality: dir,
			Strength:       relStrength,
			Labels:         elemLabels,
		},
	}
	if err := sess.ws.AddRelation(r); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", shortID(r.ID))
	return nil
}

func runRelationUpdate(cmd *cobra.Command, args []string) error {
	id, err := resolveRelation(args[0])
	if err != nil {
		return err
	}
	f := cmd.Flags()
	return sess.ws.UpdateRelation(id, func(r *graph.Relation) {
		if f.Changed("label") {
			r.Data.Label = elemLabel
		}
		if f.Changed("type") {
			r.Data.Type = elemType
		}
		if f.Changed("direction") {
			r.Data.Directionality = graph.Directionality(relDirection)
		}
		if f.Changed("strength") {
			r.Data.Strength = relStrength
		}
		if f.Changed("labels") {
			r.Data.Labels = elemLabels
		}
	})
}

func runRelationRm(cmd *cobra.Command, args []string) error {
	id, err := resolveRelation(args[0])
	if err != nil {
		return err
	}
	return sess.ws.RemoveRelation(id)
}

func runGroupAdd(cmd *cobra.Command, args []string) error {
	members := make([]string, 0, len(args)-1)
	for _, ref := range args[1:] {
		id, err := resolveActor(ref)
		if err != nil {
			return err
		}
		members = append(members, id)
	}
	g := graph.Group{
		ID: newElementID("group"),
		Data: graph.GroupData{
			Label:       args[0],
			Description: elemDescription,
			Color:       elemColor,
			ActorIDs:    members,
		},
	}
	if err := sess.ws.AddGroup(g); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", shortID(g.ID))
	return nil
}

func runGroupRm(cmd *cobra.Command, args []string) error {
	id, err := resolveGroup(args[0])
	if err != nil {
		return err
	}
	return sess.ws.RemoveGroup(id)
}

func runTypeList(cmd *cobra.Command, args []string) error {
	v, err := current()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, map[string]any{"nodeTypes": v.Catalogs.NodeTypes, "edgeTypes": v.Catalogs.EdgeTypes})
	}
	fmt.Fprintln(out, "Actor types:")
	for _, t := range v.Catalogs.NodeTypes {
		fmt.Fprintf(out, "  %-16s  %-20s  %-8s  %s\n", t.ID, t.Label, t.Color, t.Shape)
	}
	fmt.Fprintln(out, "Relation types:")
	for _, t := range v.Catalogs.EdgeTypes {
		fmt.Fprintf(out, "  %-16s  %-20s  %-8s  %s\n", t.ID, t.Label, t.Color, t.Style)
	}
	return nil
}

func typeKind(s string) (node bool, err error) {
	switch s {
	case "node", "actor":
		return true, nil
	case "edge", "relation":
		return false, nil
	}
	return false, fmt.Errorf("expected node or edge, got %q", s)
}

func runTypeAdd(cmd *cobra.Command, args []string) error {
	node, err := typeKind(args[0])
	if err != nil {
		return err
	}
	if node {
		return sess.ws.AddNodeType(model.NodeTypeConfig{
			ID: args[1], Label: args[2], Color: elemColor,
			Shape: model.Shape(typeShape), Description: elemDescription,
		})
	}
	return sess.ws.AddEdgeType(model.EdgeTypeConfig{
		ID: args[1], Label: args[2], Color: elemColor,
		Style: model.LineStyle(typeStyle), DefaultDirectionality: graph.Directionality(relDirection),
	})
}

func runTypeUpdate(cmd *cobra.Command, args []string) error {
	node, err := typeKind(args[0])
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if node {
		return sess.ws.UpdateNodeType(args[1], func(t *model.NodeTypeConfig) {
			if f.Changed("label") {
				t.Label = elemLabel
			}
			if f.Changed("color") {
				t.Color = elemColor
			}
			if f.Changed("shape") {
				t.Shape = model.Shape(typeShape)
			}
			if f.Changed("description") {
				t.Description = elemDescription
			}
		})
	}
	return sess.ws.UpdateEdgeType(args[1], func(t *model.EdgeTypeConfig) {
		if f.Changed("label") {
			t.Label = elemLabel
		}
		if f.Changed("color") {
			t.Color = elemColor
		}
		if f.Changed("style") {
			t.Style = model.LineStyle(typeStyle)
		}
		if f.Changed("direction") {
			t.DefaultDirectionality = graph.Directionality(relDirection)
		}
	})
}

func runTypeRm(cmd *cobra.Command, args []string) error {
	node, err := typeKind(args[0])
	if err != nil {
		return err
	}
	if node {
		return sess.ws.DeleteNodeType(args[1])
	}
	return sess.ws.DeleteEdgeType(args[1])
}

func runLabelList(cmd *cobra.Command, args []string) error {
	v, err := current()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, v.Catalogs.Labels)
	}
	for _, l := range v.Catalogs.Labels {
		fmt.Fprintf(out, "%-16s  %-20s  %-8s  %s\n", l.ID, l.Name, l.Color, l.AppliesTo)
	}
	return nil
}

func runLabelAdd(cmd *cobra.Command, args []string) error {
	return sess.ws.AddLabel(model.LabelConfig{
		ID: args[0], Name: args[1], Color: elemColor,
		AppliesTo: model.LabelScope(labelScope), Description: elemDescription,
	})
}

func runLabelUpdate(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	return sess.ws.UpdateLabel(args[0], func(l *model.LabelConfig) {
		if f.Changed("label") {
			l.Name = elemLabel
		}
		if f.Changed("color") {
			l.Color = elemColor
		}
		if f.Changed("scope") {
			l.AppliesTo = model.LabelScope(labelScope)
		}
		if f.Changed("description") {
			l.Description = elemDescription
		}
	})
}

func runLabelRm(cmd *cobra.Command, args []string) error {
	return sess.ws.DeleteLabel(args[0])
}

func runTangibleList(cmd *cobra.Command, args []string) error {
	v, err := current()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, v.Catalogs.Tangibles)
	}
	for _, t := range v.Catalogs.Tangibles {
		target := strings.Join(t.FilterLabels, ",")
		if t.StateID != "" {
			target = shortID(t.StateID)
		}
		fmt.Fprintf(out, "%-16s  %-20s  %-10s  %s\n", t.ID, t.Name, t.Mode, target)
	}
	return nil
}

func runTangibleAdd(cmd *cobra.Command, args []string) error {
	t := model.TangibleConfig{
		ID:                args[0],
		Name:              args[1],
		HardwareID:        tangibleHW,
		Mode:              model.TangibleMode(tangibleMode),
		Description:       elemDescription,
		FilterLabels:      elemLabels,
		FilterActorTypes:  tangibleTypes,
		FilterCombineMode: model.CombineMode(tangibleCombine),
	}
	if tangibleState != "" {
		id, err := resolveState(tangibleState)
		if err != nil {
			return err
		}
		t.StateID = id
	}
	return sess.ws.AddTangible(t)
}

func runTangibleRm(cmd *cobra.Command, args []string) error {
	return sess.ws.DeleteTangible(args[0])
}

func runRefList(cmd *cobra.Command, args []string) error {
	v, err := current()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, map[string]any{"references": v.References, "citations": v.Citations})
	}
	for _, r := range v.References {
		fmt.Fprintf(out, "%-16s  %-10s  %s\n", r.ID, r.Type, r.Title)
		printCitations(out, v.Citations[r.ID])
	}
	return nil
}

func printCitations(w io.Writer, cites []model.Citation) {
	for _, c := range cites {
		fmt.Fprintf(w, "    cited by %s %s in %s\n", c.ElementKind, shortID(c.ElementID), shortID(c.StateID))
	}
}

func runRefSet(cmd *cobra.Command, args []string) error {
	return sess.ws.SetReference(model.Reference{ID: args[0], Type: elemType, Title: refTitle})
}

func runRefRm(cmd *cobra.Command, args []string) error {
	return sess.ws.RemoveReference(args[0])
}
