package db

import "database/sql"

const personColumns = `id, name, nationality, category, entity_type, role, bio, slug,
	in_black_book, in_network, flights, documents, connections`

// scanPerson scans a row into a Person. The row must have all personColumns in order.
func scanPerson(scanner interface{ Scan(dest ...any) error }) (Person, error) {
	var p Person
	err := scanner.Scan(
		&p.ID, &p.Name, &p.Nationality, &p.Category, &p.EntityType,
		&p.Role, &p.Bio, &p.Slug, &p.InBlackBook, &p.InNetwork,
		&p.Flights, &p.Documents, &p.Connections,
	)
	return p, err
}

func collectPersons(rows *sql.Rows) ([]Person, error) {
	defer rows.Close()

	var persons []Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// AllPersons returns all persons ordered by id
func (d *DB) AllPersons() ([]Person, error) {
	rows, err := d.conn.Query(`SELECT ` + personColumns + ` FROM persons ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectPersons(rows)
}

// NetworkPersons returns the persons that appear in network.json, ordered by id
func (d *DB) NetworkPersons() ([]Person, error) {
	rows, err := d.conn.Query(`SELECT ` + personColumns + ` FROM persons WHERE in_network = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collectPersons(rows)
}

// GetPerson returns a single person by ID with its aliases. Returns
// sql.ErrNoRows if not found.
func (d *DB) GetPerson(id string) (*Person, error) {
	row := d.conn.QueryRow(`SELECT `+personColumns+` FROM persons WHERE id = ?`, id)
	p, err := scanPerson(row)
	if err != nil {
		return nil, err
	}
	if p.Aliases, err = d.AliasesFor(id); err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchByIDPrefix finds persons whose ID starts with the given prefix.
func (d *DB) SearchByIDPrefix(prefix string, limit int) ([]Person, error) {
	rows, err := d.conn.Query(`SELECT `+personColumns+` FROM persons WHERE id LIKE ? ORDER BY id LIMIT ?`, prefix+"%", limit)
	if err != nil {
		return nil, err
	}
	return collectPersons(rows)
}

// AliasesFor returns the raw name variants of a person, sorted.
func (d *DB) AliasesFor(id string) ([]string, error) {
	rows, err := d.conn.Query(`SELECT alias FROM aliases WHERE person_id = ? ORDER BY alias`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aliases []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

// ImagesFor returns the images attached to a person, ordered by path.
func (d *DB) ImagesFor(id string) ([]Image, error) {
	rows, err := d.conn.Query(`SELECT person_id, path, category FROM images WHERE person_id = ? ORDER BY path`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.PersonID, &img.Path, &img.Category); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
