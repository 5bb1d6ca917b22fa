package registry

import (
	"sort"
	"sync"

	"github.com/zhangjyr/hashmap"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
)

// EmployeeDirectory caches the employees that the backend reports as available for simulation.
type EmployeeDirectory struct {
	mu        sync.RWMutex
	employees *hashmap.HashMap // Map from employee ID to *domain.Employee.
	order     []int            // Employee IDs in the order reported by the backend.
}

func NewEmployeeDirectory() *EmployeeDirectory {
	return &EmployeeDirectory{
		employees: hashmap.New(64),
		order:     make([]int, 0),
	}
}

// Replace swaps the cached employees for the given listing.
func (d *EmployeeDirectory) Replace(employees []*domain.Employee) {
	updated := hashmap.New(uintptr(max(len(employees), 8)))
	order := make([]int, 0, len(employees))

	for _, employee := range employees {
		if employee == nil {
			continue
		}

		copied := *employee
		if _, loaded := updated.Get(copied.Id); !loaded {
			order = append(order, copied.Id)
		}
		updated.Set(copied.Id, &copied)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.employees = updated
	d.order = order
}

// Get returns a copy of the employee with the given ID.
func (d *EmployeeDirectory) Get(id int) (*domain.Employee, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	val, loaded := d.employees.Get(id)
	if !loaded {
		return nil, false
	}

	employee := *val.(*domain.Employee)
	return &employee, true
}

// All returns copies of every cached employee in the order in which the backend reported them.
func (d *EmployeeDirectory) All() []*domain.Employee {
	d.mu.RLock()
	defer d.mu.RUnlock()

	employees := make([]*domain.Employee, 0, len(d.order))
	for _, id := range d.order {
		val, loaded := d.employees.Get(id)
		if !loaded {
			continue
		}

		employee := *val.(*domain.Employee)
		employees = append(employees, &employee)
	}

	return employees
}

// Idle returns the cached employees that have no active simulator, sorted by display name.
func (d *EmployeeDirectory) Idle() []*domain.Employee {
	idle := make([]*domain.Employee, 0)
	for _, employee := range d.All() {
		if !employee.HasActiveSimulator {
			idle = append(idle, employee)
		}
	}

	sort.SliceStable(idle, func(i, j int) bool {
		return idle[i].DisplayName() < idle[j].DisplayName()
	})

	return idle
}

func (d *EmployeeDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.employees.Len()
}
