// pkg/model/dimension.go
package model

// Course is a row of the course dimension, unique by (Name, Entity)
type Course struct {
	ID            int64     `db:"id"`
	Name          string    `db:"nome_curso"`
	Entity        string    `db:"entidade"`
	Version       Migration `db:"versao"`
	CoordinatorID *int64    `db:"coordenador_id"`
}

// Coordinator is a row of the coordinator dimension, unique by the
// canonical coordinator name
type Coordinator struct {
	ID     int64  `db:"id"`
	Name   string `db:"coordenador"`
	Master string `db:"coordenador_master"`
}

// NoMaster is the classification of an unrecognized coordinator master
const NoMaster = "None"

var masterClassification = map[string]string{
	"InsBE":                            "INSBE",
	"IBREAD":                           "IBREAD",
	"André Luiz Cecil Vaz de Carvalho": "INSBE",
	"Marcel Hasslocher":                "IBREAD",
	"Jackson Santos dos Reis":          "Jackson Santos dos Reis",
}

// MasterFor maps a raw coordinator master value to its classification
func MasterFor(raw *string) string {
	if raw == nil {
		return NoMaster
	}
	if master, ok := masterClassification[*raw]; ok {
		return master
	}
	return NoMaster
}
