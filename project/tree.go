package project

import (
	"github.com/kinetigo/kinetiq/model"
	"github.com/kinetigo/kinetiq/protocol"
)

// Model <-> tree

func modelToTree(m *model.Model) map[string]any {
	tree := map[string]any{
		"objectName": m.Name,
		"Notes":      m.Notes,
	}
	var variables []map[string]any
	for _, v := range m.Variables {
		variables = append(variables, map[string]any{
			"objectName":  v.Name,
			"Value":       v.Value,
			"Description": v.Description,
			"Const":       v.Const,
			"Min":         v.Min,
			"Max":         v.Max,
		})
	}
	addChildren(tree, "Variable", variables)
	var states []map[string]any
	for _, s := range m.States {
		states = append(states, map[string]any{
			"objectName":  s.Name,
			"Probability": s.Probability,
			"Attributes":  s.Attributes,
			"Position":    []any{s.Position[0], s.Position[1], s.Position[2]},
		})
	}
	addChildren(tree, "State", states)
	var transitions []map[string]any
	for _, t := range m.Transitions {
		transitions = append(transitions, map[string]any{
			"From":   t.FromName,
			"To":     t.ToName,
			"Rate":   t.Rate,
			"Charge": t.Charge,
		})
	}
	addChildren(tree, "Transition", transitions)
	var elements []map[string]any
	for _, e := range m.Elements {
		elements = append(elements, map[string]any{
			"objectName":   e.Name,
			"Probability0": e.Probability0,
			"Rate01":       e.Rate01,
			"Rate10":       e.Rate10,
			"Charge01":     e.Charge01,
			"Charge10":     e.Charge10,
			"Position":     []any{e.Position[0], e.Position[1], e.Position[2]},
		})
	}
	addChildren(tree, "BinaryElement", elements)
	var interactions []map[string]any
	for _, in := range m.Interactions {
		interactions = append(interactions, map[string]any{
			"A":        in.AName,
			"B":        in.BName,
			"Factor11": in.Factor11,
			"FactorA1": in.FactorA1,
			"Factor1B": in.Factor1B,
		})
	}
	addChildren(tree, "Interaction", interactions)
	var groups []map[string]any
	for _, g := range m.Groups {
		groups = append(groups, map[string]any{
			"objectName": g.Name,
			"Active":     g.Active,
			"States":     g.States,
			"Attributes": g.Attributes,
		})
	}
	addChildren(tree, "StateGroup", groups)

	return tree
}

func modelFromTree(tree map[string]any) *model.Model {
	m := model.Empty(str(tree["objectName"]))
	m.Notes = str(tree["Notes"])
	for _, t := range asList(tree["Variable"]) {
		m.Variables = append(m.Variables, &model.Variable{
			Name:        str(t["objectName"]),
			Value:       str(t["Value"]),
			Description: str(t["Description"]),
			Const:       boolean(t["Const"]),
			Min:         num(t["Min"]),
			Max:         num(t["Max"]),
		})
	}
	for _, t := range asList(tree["State"]) {
		m.States = append(m.States, &model.State{
			Name:        str(t["objectName"]),
			Probability: str(t["Probability"]),
			Attributes:  str(t["Attributes"]),
			Position:    position(t["Position"]),
		})
	}
	for _, t := range asList(tree["Transition"]) {
		m.Transitions = append(m.Transitions, &model.Transition{
			FromName: str(t["From"]),
			ToName:   str(t["To"]),
			Rate:     str(t["Rate"]),
			Charge:   str(t["Charge"]),
		})
	}
	for _, t := range asList(tree["BinaryElement"]) {
		m.Elements = append(m.Elements, &model.BinaryElement{
			Name:         str(t["objectName"]),
			Probability0: str(t["Probability0"]),
			Rate01:       str(t["Rate01"]),
			Rate10:       str(t["Rate10"]),
			Charge01:     str(t["Charge01"]),
			Charge10:     str(t["Charge10"]),
			Position:     position(t["Position"]),
		})
	}
	for _, t := range asList(tree["Interaction"]) {
		m.Interactions = append(m.Interactions, &model.Interaction{
			AName:    str(t["A"]),
			BName:    str(t["B"]),
			Factor11: str(t["Factor11"]),
			FactorA1: str(t["FactorA1"]),
			Factor1B: str(t["Factor1B"]),
		})
	}
	for _, t := range asList(tree["StateGroup"]) {
		m.Groups = append(m.Groups, &model.StateGroup{
			Name:       str(t["objectName"]),
			Active:     boolean(t["Active"]),
			States:     str(t["States"]),
			Attributes: str(t["Attributes"]),
		})
	}

	return m
}

// Protocol <-> tree

func protocolsToTrees(protocols []*protocol.Protocol) []map[string]any {
	var out []map[string]any
	for _, p := range protocols {
		out = append(out, protocolToTree(p))
	}

	return out
}

func protocolToTree(p *protocol.Protocol) map[string]any {
	tree := map[string]any{
		"objectName":        p.Name,
		"Start":             p.Start,
		"Duration":          p.Duration,
		"SampleInterval":    p.SampleInterval,
		"Weight":            p.Weight,
		"StartEquilibrated": p.StartEquilibrated,
	}
	var stimuli []map[string]any
	for _, s := range p.Stimuli {
		stimuli = append(stimuli, map[string]any{
			"objectName":  s.Name,
			"Active":      s.Active,
			"Start":       s.Start,
			"Duration":    s.Duration,
			"Amplitude":   s.Amplitude,
			"OnsetExpr":   s.OnsetExpr,
			"OffsetExpr":  s.OffsetExpr,
			"Repetitions": s.Repetitions,
			"Period":      s.Period,
		})
	}
	addChildren(tree, "Stimulus", stimuli)
	var waveforms []map[string]any
	for _, w := range p.Waveforms {
		waveforms = append(waveforms, map[string]any{
			"objectName": w.Name,
			"Active":     w.Active,
			"Expr":       w.Expr,
		})
	}
	addChildren(tree, "Waveform", waveforms)
	var summaries []map[string]any
	for _, s := range p.Summaries {
		summaries = append(summaries, map[string]any{
			"objectName":    s.Name,
			"Active":        s.Active,
			"ExprX":         s.ExprX,
			"ExprY":         s.ExprY,
			"StartX":        s.StartX,
			"DurationX":     s.DurationX,
			"StartY":        s.StartY,
			"DurationY":     s.DurationY,
			"Normalization": normalizationName(s.Normalization),
		})
	}
	addChildren(tree, "Summary", summaries)
	var references []map[string]any
	for _, r := range p.References {
		references = append(references, map[string]any{
			"objectName": r.Name,
			"Active":     r.Active,
			"Waveform":   r.Waveform,
			"Data":       dataToTree(r.Data),
		})
	}
	addChildren(tree, "ReferenceData", references)

	return tree
}

func protocolFromTree(tree map[string]any) *protocol.Protocol {
	p := protocol.New(str(tree["objectName"]))
	p.Start = str(tree["Start"])
	p.Duration = str(tree["Duration"])
	p.SampleInterval = str(tree["SampleInterval"])
	p.Weight = str(tree["Weight"])
	p.StartEquilibrated = boolean(tree["StartEquilibrated"])
	for _, t := range asList(tree["Stimulus"]) {
		p.Stimuli = append(p.Stimuli, &protocol.Stimulus{
			Name:        str(t["objectName"]),
			Active:      boolean(t["Active"]),
			Start:       str(t["Start"]),
			Duration:    str(t["Duration"]),
			Amplitude:   str(t["Amplitude"]),
			OnsetExpr:   str(t["OnsetExpr"]),
			OffsetExpr:  str(t["OffsetExpr"]),
			Repetitions: str(t["Repetitions"]),
			Period:      str(t["Period"]),
		})
	}
	for _, t := range asList(tree["Waveform"]) {
		p.Waveforms = append(p.Waveforms, &protocol.Waveform{
			Name:   str(t["objectName"]),
			Active: boolean(t["Active"]),
			Expr:   str(t["Expr"]),
		})
	}
	for _, t := range asList(tree["Summary"]) {
		p.Summaries = append(p.Summaries, &protocol.Summary{
			Name:          str(t["objectName"]),
			Active:        boolean(t["Active"]),
			ExprX:         str(t["ExprX"]),
			ExprY:         str(t["ExprY"]),
			StartX:        str(t["StartX"]),
			DurationX:     str(t["DurationX"]),
			StartY:        str(t["StartY"]),
			DurationY:     str(t["DurationY"]),
			Normalization: normalizationValue(str(t["Normalization"])),
		})
	}
	for _, t := range asList(tree["ReferenceData"]) {
		p.References = append(p.References, &protocol.ReferenceData{
			Name:     str(t["objectName"]),
			Active:   boolean(t["Active"]),
			Waveform: str(t["Waveform"]),
			Data:     dataFromTree(t["Data"]),
		})
	}

	return p
}

// addChildren stores a child group under its type name, collapsing a
// single child to a bare object.
func addChildren(tree map[string]any, typeName string, children []map[string]any) {
	if len(children) == 0 {
		return
	}
	tree[typeName] = childList(children)
}

func normalizationName(n protocol.Normalization) string {
	switch n {
	case protocol.NormalizePerRow:
		return "PerRow"
	case protocol.NormalizeAllRows:
		return "AllRows"
	default:
		return "None"
	}
}

func normalizationValue(s string) protocol.Normalization {
	switch s {
	case "PerRow":
		return protocol.NormalizePerRow
	case "AllRows":
		return protocol.NormalizeAllRows
	default:
		return protocol.NormalizeNone
	}
}

func dataToTree(data [][][]float64) any {
	rows := make([]any, len(data))
	for r, rowData := range data {
		cols := make([]any, len(rowData))
		for c, vec := range rowData {
			samples := make([]any, len(vec))
			for i, x := range vec {
				samples[i] = x
			}
			cols[c] = samples
		}
		rows[r] = cols
	}

	return rows
}

func dataFromTree(raw any) [][][]float64 {
	rows, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([][][]float64, len(rows))
	for r, rowRaw := range rows {
		cols, ok := rowRaw.([]any)
		if !ok {
			continue
		}
		out[r] = make([][]float64, len(cols))
		for c, vecRaw := range cols {
			samples, ok := vecRaw.([]any)
			if !ok {
				continue
			}
			vec := make([]float64, len(samples))
			for i, x := range samples {
				vec[i] = num(x)
			}
			out[r][c] = vec
		}
	}

	return out
}
