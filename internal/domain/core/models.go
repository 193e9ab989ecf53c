package core

import "time"

type Employee struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	EmployeeNumber string     `json:"employeeNumber"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	Location       string     `json:"location"`
	DepartmentID   string     `json:"departmentId"`
	ManagerID      string     `json:"managerId"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ManagerID string    `json:"managerId"`
	CreatedAt time.Time `json:"createdAt"`
}
