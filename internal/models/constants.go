package models

// Backend collection paths. The portal mounts its pages under the same names.
const (
	EntityRooms         = "salas"
	EntityEquipment     = "equipos"
	EntityReservations  = "reservas"
	EntityTrainers      = "capacitadores"
	EntityResponsibles  = "responsables"
	EntityUsageControls = "controles-uso"
	EntityUsers         = "usuarios"
	EntityRoles         = "roles"
	EntityPermissions   = "permisos"
)

// Equipment conditions offered by the equipment and usage-control forms.
const (
	ConditionGood     = "bueno"
	ConditionRegular  = "regular"
	ConditionBad      = "malo"
	ConditionOutOfUse = "fuera_de_servicio"
)

// Conditions lists equipment conditions in display order.
var Conditions = []string{ConditionGood, ConditionRegular, ConditionBad, ConditionOutOfUse}

const (
	// DateLayout формат дат, которым обмениваемся с бэкендом
	DateLayout = "2006-01-02"

	// TimeLayout формат времени начала/окончания брони
	TimeLayout = "15:04"

	// DefaultMaxOptionPages сколько страниц подгружаем для выпадающих списков
	DefaultMaxOptionPages = 10

	// FlashTTL время жизни уведомления между редиректами (секунды)
	FlashTTL = 10 * 60
)
