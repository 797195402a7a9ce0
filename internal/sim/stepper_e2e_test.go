package sim_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dvdm/internal/dynamo"
	"github.com/san-kum/dvdm/internal/metrics"
	"github.com/san-kum/dvdm/internal/physics"
	"github.com/san-kum/dvdm/internal/sim"
	"github.com/san-kum/dvdm/internal/solver"
	"github.com/san-kum/dvdm/internal/storage"
)

var _ = Describe("Stepper", func() {
	var (
		store  *storage.Memory
		params dynamo.Params
		grid   dynamo.Grid
		ts     dynamo.Timeset
		init   dynamo.InitialCondition
	)

	BeforeEach(func() {
		var err error
		store = storage.NewMemory()
		grid = dynamo.Grid{N: 10, Dx: 0.5}
		params, err = dynamo.NewParams(map[string]float64{dynamo.ParamGamma: 2, dynamo.ParamConst: 0.25})
		Expect(err).NotTo(HaveOccurred())
		ts = dynamo.Timeset{InitTime: 0, TimeSpan: 4, Brank: 1, Dt: 0.5, Precision: 1}
		init = func(idx int) float64 { return 0.01 * math.Cos(4*math.Pi*float64(idx)/15) }
	})

	run := func(eq dynamo.Equation) (*sim.Result, *sim.Stepper) {
		st := sim.New(store, solver.NewHybrid(solver.DefaultConfig()))
		_, err := st.Prepare(eq, ts, init)
		Expect(err).NotTo(HaveOccurred())
		result, err := st.Run(context.Background(), eq, ts)
		Expect(err).NotTo(HaveOccurred())
		return result, st
	}

	Context("Cahn-Hilliard DVDM", func() {
		var (
			eq *physics.CahnHilliardDVDM
			iv *metrics.Invariants
		)

		BeforeEach(func() {
			var err error
			eq, err = physics.NewCahnHilliardDVDM(grid, params, ts.Dt)
			Expect(err).NotTo(HaveOccurred())
			iv, err = metrics.NewInvariants(grid, params)
			Expect(err).NotTo(HaveOccurred())
		})

		It("persists five snapshots of length N+4", func() {
			result, st := run(eq)
			Expect(st.Phase()).To(Equal(sim.Converged))
			Expect(result.Labels).To(Equal([]string{"0.5", "1.0", "1.5", "2.0"}))

			labels := store.Labels(dynamo.FieldU)
			Expect(labels).To(HaveLen(5))
			for _, label := range labels {
				u, err := store.Load(dynamo.FieldU, label)
				Expect(err).NotTo(HaveOccurred())
				Expect(u).To(HaveLen(14))
			}
			Expect(store.Labels(dynamo.FieldRate)).To(HaveLen(4))
		})

		It("conserves mass and does not increase energy", func() {
			run(eq)

			var masses, energies []float64
			for _, label := range store.Labels(dynamo.FieldU) {
				u, err := store.Load(dynamo.FieldU, label)
				Expect(err).NotTo(HaveOccurred())
				m, err := iv.Mass(u)
				Expect(err).NotTo(HaveOccurred())
				e, err := iv.TotalEnergy(u)
				Expect(err).NotTo(HaveOccurred())
				masses = append(masses, m)
				energies = append(energies, e)
			}

			for i := 1; i < len(masses); i++ {
				Expect(masses[i]).To(BeNumerically("~", masses[0], 1e-6))
				Expect(energies[i]).To(BeNumerically("<=", energies[i-1]+1e-9))
			}
		})

		It("keeps ghost slots mirrored", func() {
			result, _ := run(eq)
			u := result.Final
			n := grid.N
			Expect(u[0]).To(BeNumerically("~", u[4], 1e-12))
			Expect(u[1]).To(BeNumerically("~", u[3], 1e-12))
			Expect(u[n+2]).To(BeNumerically("~", u[n], 1e-12))
			Expect(u[n+3]).To(BeNumerically("~", u[n-1], 1e-12))
		})

		It("reports invariant metrics", func() {
			st := sim.New(store, solver.NewHybrid(solver.DefaultConfig()))
			for _, m := range metrics.Defaults(iv) {
				st.AddMetric(m)
			}
			_, err := st.Prepare(eq, ts, init)
			Expect(err).NotTo(HaveOccurred())
			result, err := st.Run(context.Background(), eq, ts)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Metrics).To(HaveKey("mass"))
			Expect(result.Metrics["mass_drift"]).To(BeNumerically("<", 1e-6))
			Expect(result.Metrics["energy_increase"]).To(BeNumerically("<=", 1e-9))
		})
	})

	Context("Cahn-Hilliard forward Euler", func() {
		It("advances with the same layout", func() {
			ts.Dt = 0.001
			ts.Precision = 3
			eq, err := physics.NewCahnHilliardForwardEuler(grid, params, ts.Dt)
			Expect(err).NotTo(HaveOccurred())

			result, st := run(eq)
			Expect(st.Phase()).To(Equal(sim.Converged))
			Expect(result.Final).To(HaveLen(14))
			Expect(result.Final.IsValid()).To(BeTrue())
		})
	})

	Context("heat with reaction boundary", func() {
		It("stays bounded", func() {
			g := dynamo.Grid{N: 8, Dx: 0.1}
			ts = dynamo.Timeset{InitTime: 0, TimeSpan: 10, Brank: 5, Dt: 0.01, Precision: 2}
			eq, err := physics.NewHeatReactionDVDM(g, params, ts.Dt)
			Expect(err).NotTo(HaveOccurred())
			init = physics.Constant(0.5)

			result, _ := run(eq)
			Expect(result.Labels).To(Equal([]string{"0.01", "0.05", "0.10"}))
			for _, v := range result.Final {
				Expect(math.Abs(v)).To(BeNumerically("<", 2))
			}
		})
	})
})
