package table

import (
	"github.com/kailas-cloud/vecstore/internal/db"
	domtbl "github.com/kailas-cloud/vecstore/internal/domain/table"
)

func toRef(ref domtbl.Ref) db.TableRef {
	return db.TableRef{Dataset: ref.Dataset, Table: ref.Table, Location: ref.Location}
}

func toFieldDefs(fields []domtbl.Field) []db.FieldDef {
	if len(fields) == 0 {
		return nil
	}
	out := make([]db.FieldDef, len(fields))
	for i, f := range fields {
		ft := db.FieldTag
		if f.Type() == domtbl.FieldNumeric {
			ft = db.FieldNumeric
		}
		out[i] = db.FieldDef{Name: f.Name(), Type: ft}
	}
	return out
}

func fromFieldDefs(defs []db.FieldDef) []domtbl.Field {
	if len(defs) == 0 {
		return nil
	}
	out := make([]domtbl.Field, len(defs))
	for i, d := range defs {
		ft := domtbl.FieldTag
		if d.Type == db.FieldNumeric {
			ft = domtbl.FieldNumeric
		}
		out[i] = domtbl.ReconstructField(d.Name, ft)
	}
	return out
}
