package domain

import "errors"

// Errores de dominio del pipeline ETL (sin dependencias externas).
// Todos son terminales para la corrida: el comando los traduce a un código de salida.
var (
	// Extractor
	ErrAuthentication = errors.New("credenciales rechazadas por el dashboard")
	ErrRetrieval      = errors.New("no se pudo obtener el listado de inventario")

	// Transformer
	ErrTransform = errors.New("fila de inventario inválida")

	// Loader
	ErrConnection = errors.New("base de datos no disponible")
	ErrConstraint = errors.New("registro rechazado por el esquema")
)
