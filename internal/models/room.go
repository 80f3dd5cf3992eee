package models

type Room struct {
	ID        int64  `json:"id"`
	Nombre    string `json:"nombre"`
	Capacidad int    `json:"capacidad"`
	Ubicacion string `json:"ubicacion"`
}

type Equipment struct {
	ID               int64   `json:"id"`
	Marca            string  `json:"marca"`
	Modelo           string  `json:"modelo"`
	SistemaOperativo string  `json:"sistema_operativo"`
	EstadoInicial    string  `json:"estado_inicial"`
	EstadoFinal      string  `json:"estado_final"`
	FechaAdquisicion string  `json:"fecha_adquisicion"`
	FechaBaja        *string `json:"fecha_baja"`
	SalaID           int64   `json:"sala_id"`
	Sala             *Room   `json:"sala,omitempty"`
}

// Label is the short name used in selects and usage-control rows.
func (e Equipment) Label() string {
	if e.Modelo == "" {
		return e.Marca
	}
	return e.Marca + " " + e.Modelo
}

type ResponsiblePerson struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
	Area   string `json:"area"`
}
