package registry_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
	"github.com/fatigue-platform/operator-console/m/v2/internal/registry"
)

var _ = Describe("EmployeeDirectory", func() {
	var directory *registry.EmployeeDirectory

	BeforeEach(func() {
		directory = registry.NewEmployeeDirectory()
		directory.Replace([]*domain.Employee{
			{Id: 7, FirstName: "Zoe", LastName: "Ramos"},
			{Id: 3, FullName: "Ana Diaz", HasActiveSimulator: true},
			{Id: 5, FirstName: "Bruno", LastName: "Silva"},
		})
	})

	It("will return employees in the order they were listed", func() {
		employees := directory.All()
		Expect(employees).To(HaveLen(3))
		Expect(employees[0].Id).To(Equal(7))
		Expect(employees[1].Id).To(Equal(3))
		Expect(employees[2].Id).To(Equal(5))
		Expect(directory.Len()).To(Equal(3))
	})

	It("will look up employees by ID", func() {
		employee, loaded := directory.Get(5)
		Expect(loaded).To(BeTrue())
		Expect(employee.DisplayName()).To(Equal("Bruno Silva"))

		_, loaded = directory.Get(42)
		Expect(loaded).To(BeFalse())
	})

	It("will list idle employees sorted by name", func() {
		idle := directory.Idle()
		Expect(idle).To(HaveLen(2))
		Expect(idle[0].Id).To(Equal(5))
		Expect(idle[1].Id).To(Equal(7))
	})

	It("will fully replace the previous listing", func() {
		directory.Replace([]*domain.Employee{{Id: 9, FullName: "Carla Ortiz"}})

		Expect(directory.Len()).To(Equal(1))
		_, loaded := directory.Get(7)
		Expect(loaded).To(BeFalse())
	})
})
